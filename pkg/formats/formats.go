// Package formats provides parsers for the voxel tool-chain file formats:
// raw voxel dumps, Wavefront OBJ meshes and OCRAM framebuffer dumps.
package formats

// Note: raw voxel dumps are implemented in raw.go
// Note: OBJ parsing is implemented in obj.go
// Note: OCRAM pixel dumps are implemented in pixeldump.go
