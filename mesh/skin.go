package mesh

import (
	"github.com/pkg/errors"
)

// SkinTable maps skin-local joint indices, as stored in vertex data, to skeleton joint indices.
type SkinTable struct {
	Name   string
	Joints []int
}

func (st *SkinTable) Remap(local [4]uint16) ([4]int32, error) {
	var global [4]int32
	for k, j := range local {
		if int(j) >= len(st.Joints) {
			return global, errors.Wrapf(ErrJointOutOfRange, "skin %q: joint %d, table has %d", st.Name, j, len(st.Joints))
		}
		global[k] = int32(st.Joints[j])
	}
	return global, nil
}

func (st *SkinTable) RemapAll(local [][4]uint16) ([][4]int32, error) {
	out := make([][4]int32, len(local))
	for i := range local {
		g, err := st.Remap(local[i])
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
		out[i] = g
	}
	return out, nil
}

// SkinSet owns every skin table of an asset and records which table each mesh uses.
type SkinSet struct {
	tables []SkinTable
	meshes map[int]int
}

func NewSkinSet() *SkinSet {
	return &SkinSet{meshes: make(map[int]int)}
}

// Add stores a table and returns its index.
func (ss *SkinSet) Add(st SkinTable) int {
	ss.tables = append(ss.tables, st)
	return len(ss.tables) - 1
}

func (ss *SkinSet) Len() int {
	return len(ss.tables)
}

func (ss *SkinSet) Table(skin int) *SkinTable {
	return &ss.tables[skin]
}

// Bind attaches mesh to skin, replacing any previous binding.
func (ss *SkinSet) Bind(mesh, skin int) error {
	if skin < 0 || skin >= len(ss.tables) {
		return errors.Errorf("skin %d out of range, %d skins", skin, len(ss.tables))
	}
	ss.meshes[mesh] = skin
	return nil
}

// For returns the table bound to mesh, or nil.
func (ss *SkinSet) For(mesh int) *SkinTable {
	if skin, ok := ss.meshes[mesh]; ok {
		return &ss.tables[skin]
	}
	return nil
}
