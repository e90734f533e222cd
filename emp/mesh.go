package emp

import (
	"fmt"

	"github.com/emptools/empfile"
)

// MeshCodec converts between embedded mesh blobs and Meshes. Blobs passed to
// DecodeMesh begin with the mesh signature, and are owned by the codec.
type MeshCodec interface {
	DecodeMesh(blob []byte) (empfile.Mesh, error)
	EncodeMesh(mesh empfile.Mesh) ([]byte, error)
}

// RawMeshCodec keeps meshes as undecoded bytes. It is used when no other
// codec is configured.
type RawMeshCodec struct{}

func (RawMeshCodec) DecodeMesh(blob []byte) (empfile.Mesh, error) {
	return empfile.RawMesh(blob), nil
}

func (RawMeshCodec) EncodeMesh(mesh empfile.Mesh) ([]byte, error) {
	raw, ok := mesh.(empfile.RawMesh)
	if !ok {
		return nil, fmt.Errorf("cannot encode mesh of type %T", mesh)
	}
	return raw, nil
}
