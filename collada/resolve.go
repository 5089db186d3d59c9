package collada

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	dae "github.com/mogaika/go-collada"
	"github.com/pkg/errors"

	"github.com/mogaika/rig_importer/utils"
)

type Mesh struct {
	Sources  []Source
	Vertices []Input
	// <polygons> without holes are stored as polylists
	Triangles []Primitive
	Polylists []Primitive
	// element name to count of primitives that are kept unresolved
	Skipped map[string]int
}

type Source struct {
	ID     string
	Data   []float32
	Count  int
	Stride int
	Offset int
}

type Input struct {
	Semantic string
	Source   string
	Offset   int
	Set      int
}

type Primitive struct {
	Material string
	Inputs   []Input
	// nil for <triangles>
	VCount []int
	P      []int
}

// accessor is the <technique_common> content of a source, go-collada keeps it as raw xml.
type accessor struct {
	XMLName xml.Name `xml:"accessor"`
	Source  string   `xml:"source,attr"`
	Count   int      `xml:"count,attr"`
	Stride  int      `xml:"stride,attr"`
	Offset  int      `xml:"offset,attr"`
}

func trimRef(ref string) string {
	return strings.TrimPrefix(ref, "#")
}

// RefID returns the fragment id of a local reference such as "#mesh-id".
func RefID(uri dae.Uri) string {
	return trimRef(string(uri))
}

func parseFloats(raw string) ([]float32, error) {
	fields := strings.Fields(raw)
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func parseInts(raw string) ([]int, error) {
	fields := strings.Fields(raw)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i)
		}
		out[i] = v
	}
	return out, nil
}

func resolveSource(s *dae.Source) (Source, error) {
	src := Source{ID: string(s.Id), Stride: 1}
	if s.FloatArray != nil {
		data, err := parseFloats(s.FloatArray.V)
		if err != nil {
			return src, errors.Wrapf(err, "source %q float_array", s.Id)
		}
		src.Data = data
	}

	var acc accessor
	err := xml.Unmarshal([]byte(s.TechniqueCommon.XML), &acc)
	switch {
	case err == io.EOF:
	case err != nil:
		return src, errors.Wrapf(err, "source %q accessor", s.Id)
	default:
		if acc.Stride > 0 {
			src.Stride = acc.Stride
		}
		if acc.Offset < 0 || acc.Count < 0 {
			return src, errors.Errorf("source %q: accessor offset %d count %d", s.Id, acc.Offset, acc.Count)
		}
		src.Count = acc.Count
		src.Offset = acc.Offset
	}
	if src.Count == 0 && len(src.Data) > src.Offset {
		src.Count = (len(src.Data) - src.Offset) / src.Stride
	}
	return src, nil
}

func sharedInputs(in []*dae.InputShared) []Input {
	out := make([]Input, len(in))
	for i, si := range in {
		out[i] = Input{Semantic: si.Semantic, Source: string(si.Source), Offset: int(si.Offset), Set: int(si.Set)}
	}
	return out
}

func resolvePrimitive(kind string, inputs []*dae.InputShared, material string, p *dae.P, vcount *dae.Ints) (Primitive, error) {
	prim := Primitive{Material: material, Inputs: sharedInputs(inputs)}
	if p != nil {
		ints, err := parseInts(p.V)
		if err != nil {
			return prim, errors.Wrapf(err, "<%s> <p>", kind)
		}
		prim.P = ints
	}
	if vcount != nil {
		ints, err := parseInts(vcount.V)
		if err != nil {
			return prim, errors.Wrapf(err, "<%s> <vcount>", kind)
		}
		prim.VCount = ints
	}
	return prim, nil
}

// resolvePolygons joins the <p> lists of a <polygons> element into one polylist.
func resolvePolygons(pg *dae.Polygons) (Primitive, error) {
	prim := Primitive{Material: pg.Material, Inputs: sharedInputs(pg.Input), VCount: []int{}}
	stride := prim.IndexStride()
	for i, p := range pg.P {
		ints, err := parseInts(p.V)
		if err != nil {
			return prim, errors.Wrapf(err, "<polygons> <p> %d", i)
		}
		if len(ints)%stride != 0 {
			return prim, errors.Errorf("<polygons> <p> %d: %d indices for %d inputs", i, len(ints), stride)
		}
		prim.P = append(prim.P, ints...)
		prim.VCount = append(prim.VCount, len(ints)/stride)
	}
	return prim, nil
}

func resolveMesh(m *dae.Mesh) (*Mesh, error) {
	out := &Mesh{Skipped: make(map[string]int)}
	for _, s := range m.Source {
		src, err := resolveSource(s)
		if err != nil {
			return nil, err
		}
		out.Sources = append(out.Sources, src)
	}
	for _, vi := range m.Vertices.Input {
		out.Vertices = append(out.Vertices, Input{Semantic: vi.Semantic, Source: string(vi.Source)})
	}

	for _, t := range m.Triangles {
		prim, err := resolvePrimitive("triangles", t.Input, t.Material, t.P, nil)
		if err != nil {
			return nil, err
		}
		out.Triangles = append(out.Triangles, prim)
	}
	for _, pl := range m.Polylist {
		prim, err := resolvePrimitive("polylist", pl.Input, pl.Material, pl.P, pl.VCount)
		if err != nil {
			return nil, err
		}
		if prim.VCount == nil {
			return nil, errors.New("<polylist> without <vcount>")
		}
		out.Polylists = append(out.Polylists, prim)
	}
	for _, pg := range m.Polygons {
		// holes are not triangulated
		if len(pg.Ph) != 0 {
			out.Skipped["polygons"]++
			continue
		}
		prim, err := resolvePolygons(pg)
		if err != nil {
			return nil, err
		}
		out.Polylists = append(out.Polylists, prim)
	}

	for name, n := range map[string]int{
		"lines":      len(m.Lines),
		"linestrips": len(m.Linestrips),
		"trifans":    len(m.Trifans),
		"tristrips":  len(m.Tristrips),
	} {
		if n != 0 {
			out.Skipped[name] += n
		}
	}
	return out, nil
}

func (d *Document) Geometry(ref string) (*Geometry, error) {
	id := trimRef(ref)
	for i := range d.Geometries {
		if d.Geometries[i].ID == id {
			return &d.Geometries[i], nil
		}
	}
	return nil, errors.Errorf("geometry %q not found", ref)
}

// WalkNodes visits every visual scene node parents first with its accumulated transform.
func (d *Document) WalkNodes(fn func(n *dae.Node, global mgl32.Mat4) error) error {
	var walk func(nodes []*dae.Node, parent mgl32.Mat4) error
	walk = func(nodes []*dae.Node, parent mgl32.Mat4) error {
		for _, n := range nodes {
			local, err := LocalMatrix(n)
			if err != nil {
				return err
			}
			global := parent.Mul4(local)
			if err := fn(n, global); err != nil {
				return err
			}
			if err := walk(n.Node, global); err != nil {
				return err
			}
		}
		return nil
	}
	for _, lib := range d.Raw.LibraryVisualScenes {
		for _, vs := range lib.VisualScene {
			if err := walk(vs.Node, mgl32.Ident4()); err != nil {
				return err
			}
		}
	}
	return nil
}

func components(raw string, n int, what string) ([]float32, error) {
	vs, err := parseFloats(raw)
	if err != nil {
		return nil, errors.Wrap(err, what)
	}
	if len(vs) != n {
		return nil, errors.Errorf("<%s> has %d values", what, len(vs))
	}
	return vs, nil
}

// LocalMatrix composes the node transform elements. go-collada groups them by
// element, so the order between groups is fixed: matrix, translate, rotate, scale.
// COLLADA matrices are written row by row. <skew> and <lookat> are not applied.
func LocalMatrix(n *dae.Node) (mgl32.Mat4, error) {
	local := mgl32.Ident4()
	for _, m := range n.Matrix {
		vs, err := components(m.V, 16, "matrix")
		if err != nil {
			return local, errors.Wrapf(err, "node %q", n.Id)
		}
		var rm [16]float32
		copy(rm[:], vs)
		local = local.Mul4(utils.Mat4FromRowMajor(rm))
	}
	for _, t := range n.Translate {
		vs, err := components(t.V, 3, "translate")
		if err != nil {
			return local, errors.Wrapf(err, "node %q", n.Id)
		}
		local = local.Mul4(mgl32.Translate3D(vs[0], vs[1], vs[2]))
	}
	for _, r := range n.Rotate {
		vs, err := components(r.V, 4, "rotate")
		if err != nil {
			return local, errors.Wrapf(err, "node %q", n.Id)
		}
		axis := mgl32.Vec3{vs[0], vs[1], vs[2]}
		if axis.Len() == 0 {
			continue
		}
		local = local.Mul4(mgl32.HomogRotate3D(mgl32.DegToRad(vs[3]), axis.Normalize()))
	}
	for _, s := range n.Scale {
		vs, err := components(s.V, 3, "scale")
		if err != nil {
			return local, errors.Wrapf(err, "node %q", n.Id)
		}
		local = local.Mul4(mgl32.Scale3D(vs[0], vs[1], vs[2]))
	}
	return local, nil
}

func (m *Mesh) Source(ref string) (*Source, error) {
	id := trimRef(ref)
	for i := range m.Sources {
		if m.Sources[i].ID == id {
			return &m.Sources[i], nil
		}
	}
	return nil, errors.Errorf("source %q not found", ref)
}

// ExpandInputs replaces the VERTEX input by the inputs of <vertices>, keeping its offset and set.
func (m *Mesh) ExpandInputs(inputs []Input) []Input {
	out := make([]Input, 0, len(inputs)+len(m.Vertices))
	for _, in := range inputs {
		if in.Semantic != "VERTEX" {
			out = append(out, in)
			continue
		}
		for _, vi := range m.Vertices {
			vi.Offset = in.Offset
			vi.Set = in.Set
			out = append(out, vi)
		}
	}
	return out
}

func (s *Source) Len() int {
	return s.Count
}

// At returns the components of element i, honoring the accessor offset and stride.
func (s *Source) At(i int) ([]float32, error) {
	start := s.Offset + i*s.Stride
	if i < 0 || i >= s.Count || start+s.Stride > len(s.Data) {
		return nil, errors.Errorf("source %q: element %d out of range (%d elements)", s.ID, i, s.Count)
	}
	return s.Data[start : start+s.Stride], nil
}

// IndexStride is the number of <p> entries per corner.
func (p *Primitive) IndexStride() int {
	stride := 0
	for _, in := range p.Inputs {
		if in.Offset+1 > stride {
			stride = in.Offset + 1
		}
	}
	if stride == 0 {
		return 1
	}
	return stride
}

// VertexCounts returns corners per polygon: <vcount> when present, otherwise
// fixed size polygons of the given size covering <p>.
func (p *Primitive) VertexCounts(size int) []int {
	if p.VCount != nil {
		return p.VCount
	}
	n := len(p.P) / p.IndexStride() / size
	counts := make([]int, n)
	for i := range counts {
		counts[i] = size
	}
	return counts
}
