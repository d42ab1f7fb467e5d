// Package renderer shows the RGB565 front buffer in the OpenGL window: the
// pixels are uploaded as a 5-6-5 texture and drawn on a letterboxed
// fullscreen quad.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/engine/shader"
	"github.com/Faultbox/voxelray/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	// Width and Height are the framebuffer size.
	Width  int
	Height int
	// ViewportWidth and ViewportHeight are the drawable size of the window.
	ViewportWidth  int
	ViewportHeight int
}

// Renderer owns the texture and quad used to present frames. All methods
// must be called on the thread that holds the GL context.
type Renderer struct {
	config Config

	program *shader.Program
	vao     uint32
	vbo     uint32
	texture uint32

	texW, texH int
	frames     uint64
}

const vertexShader = `
#version 410 core

layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aUV;

out vec2 uv;

void main() {
	gl_Position = vec4(aPos, 0.0, 1.0);
	uv = aUV;
}
`

const fragmentShader = `
#version 410 core

in vec2 uv;
out vec4 FragColor;

uniform sampler2D frame;

void main() {
	FragColor = vec4(texture(frame, uv).rgb, 1.0);
}
`

// Two triangles covering clip space. Row 0 of the framebuffer is the top
// of the screen, so v runs downwards.
var quad = []float32{
	// x, y, u, v
	-1, -1, 0, 1,
	1, -1, 1, 1,
	1, 1, 1, 0,
	-1, -1, 0, 1,
	1, 1, 1, 0,
	-1, 1, 0, 0,
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.ClearColor(0, 0, 0, 1)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 2)

	var err error
	r.program, err = shader.New(vertexShader, fragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}
	r.program.Use()
	if err := r.program.SetSampler("frame", 0); err != nil {
		r.program.Delete()
		return nil, err
	}

	r.createQuad()
	r.createTexture(cfg.Width, cfg.Height)
	r.Resize(cfg.ViewportWidth, cfg.ViewportHeight)

	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer", zap.Uint64("frames", r.frames))
	if r.texture != 0 {
		gl.DeleteTextures(1, &r.texture)
	}
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
	}
	if r.program != nil {
		r.program.Delete()
	}
}

// Resize fits the framebuffer into a window of the given drawable size
// keeping its aspect ratio.
func (r *Renderer) Resize(width, height int) {
	r.config.ViewportWidth = width
	r.config.ViewportHeight = height
	x, y, w, h := Letterbox(width, height, r.texW, r.texH)
	gl.Viewport(int32(x), int32(y), int32(w), int32(h))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("viewport_w", w),
		zap.Int("viewport_h", h),
	)
}

// Present uploads a front buffer. It is registered as a display presenter
// and so runs inside the display's vertical sync.
func (r *Renderer) Present(front *framebuffer.Framebuffer) error {
	if len(front.Pix) == 0 {
		return nil
	}
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	if front.Width() != r.texW || front.Height() != r.texH {
		r.allocTexture(front.Width(), front.Height())
		r.Resize(r.config.ViewportWidth, r.config.ViewportHeight)
	}
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(r.texW), int32(r.texH),
		gl.RGB, gl.UNSIGNED_SHORT_5_6_5, gl.Ptr(&front.Pix[0]))
	r.frames++
	return nil
}

// Draw clears the window and draws the last presented frame.
func (r *Renderer) Draw() {
	gl.Clear(gl.COLOR_BUFFER_BIT)
	r.program.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(quad)/4))
	gl.BindVertexArray(0)
}

func (r *Renderer) createQuad() {
	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)

	const stride = 4 * 4
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, stride, 2*4)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
}

func (r *Renderer) createTexture(w, h int) {
	gl.GenTextures(1, &r.texture)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	r.allocTexture(w, h)
}

func (r *Renderer) allocTexture(w, h int) {
	if w < 1 {
		w = framebuffer.DefaultWidth
	}
	if h < 1 {
		h = framebuffer.DefaultHeight
	}
	r.texW, r.texH = w, h
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGB565, int32(w), int32(h), 0,
		gl.RGB, gl.UNSIGNED_SHORT_5_6_5, nil)
	logger.Debug("frame texture allocated", zap.Int("width", w), zap.Int("height", h))
}

// Letterbox returns the largest viewport with the aspect ratio of a
// fbW x fbH image that fits a winW x winH window, centred.
func Letterbox(winW, winH, fbW, fbH int) (x, y, w, h int) {
	if winW <= 0 || winH <= 0 || fbW <= 0 || fbH <= 0 {
		return 0, 0, max(winW, 0), max(winH, 0)
	}
	if winW*fbH > winH*fbW {
		// Window is wider than the image.
		h = winH
		w = winH * fbW / fbH
	} else {
		w = winW
		h = winW * fbH / fbW
	}
	return (winW - w) / 2, (winH - h) / 2, w, h
}
