package shapes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fsanges/master-of-puppets/internal/scene"
)

const codecVersion = 1

// Shape is the captured state of one curve shape node.
type Shape struct {
	Degree          int          `json:"degree"`
	EnableOverrides bool         `json:"enable_overrides"`
	UseRGB          bool         `json:"use_rgb"`
	ColorIndex      int          `json:"color_index"`
	ColorRGB        [3]float64   `json:"color_rgb"`
	CVs             [][3]float64 `json:"cvs"`
}

// Data is every shape under one controller, in child order.
type Data []Shape

type envelope struct {
	Version int     `json:"version"`
	Shapes  []Shape `json:"shapes"`
}

// Capture extracts the shape data from a controller. Only degree 1 curves
// are supported; controllers without curve shapes are an error the caller
// is expected to swallow.
func Capture(g scene.Graph, ctl string) (Data, error) {
	shapeNodes, err := curveShapes(g, ctl)
	if err != nil {
		return nil, err
	}
	if len(shapeNodes) == 0 {
		return nil, fmt.Errorf("capture shape: %s has no curve shapes", ctl)
	}

	var data Data
	for _, shapeNode := range shapeNodes {
		degreeValue, err := g.GetAttr(shapeNode, "degree")
		if err != nil {
			return nil, fmt.Errorf("capture shape %s: %w", shapeNode, err)
		}
		degree := int(degreeValue.Float)
		if degree != 1 {
			return nil, fmt.Errorf("capture shape %s: only degree 1 curves are supported, got %d", shapeNode, degree)
		}

		shape := Shape{Degree: degree}
		overrideSource := shapeNode
		enabled, err := g.GetAttr(shapeNode, "overrideEnabled")
		if err != nil {
			return nil, fmt.Errorf("capture shape %s: %w", shapeNode, err)
		}
		if !enabled.Bool {
			// Fall back to the transform's override block.
			overrideSource = ctl
		}
		if err := readOverrides(g, overrideSource, &shape); err != nil {
			return nil, err
		}

		cvsValue, err := g.GetAttr(shapeNode, "cvs")
		if err != nil {
			return nil, fmt.Errorf("capture shape %s: %w", shapeNode, err)
		}
		if err := json.Unmarshal([]byte(cvsValue.Str), &shape.CVs); err != nil {
			return nil, fmt.Errorf("capture shape %s: parse cvs: %w", shapeNode, err)
		}
		data = append(data, shape)
	}
	return data, nil
}

func readOverrides(g scene.Graph, node string, shape *Shape) error {
	enabled, err := g.GetAttr(node, "overrideEnabled")
	if err != nil {
		return fmt.Errorf("capture shape overrides on %s: %w", node, err)
	}
	useRGB, err := g.GetAttr(node, "overrideRGBColors")
	if err != nil {
		return fmt.Errorf("capture shape overrides on %s: %w", node, err)
	}
	index, err := g.GetAttr(node, "overrideColor")
	if err != nil {
		return fmt.Errorf("capture shape overrides on %s: %w", node, err)
	}
	rgb, err := g.GetAttr(node, "overrideColorRGB")
	if err != nil {
		return fmt.Errorf("capture shape overrides on %s: %w", node, err)
	}
	shape.EnableOverrides = enabled.Bool
	shape.UseRGB = useRGB.Bool
	shape.ColorIndex = int(index.Float)
	shape.ColorRGB = rgb.Vec
	return nil
}

// Apply replaces the controller's curve shapes with the captured data.
func Apply(g scene.Graph, ctl string, data Data) error {
	existing, err := curveShapes(g, ctl)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		if err := g.Delete(existing...); err != nil {
			return fmt.Errorf("apply shape to %s: %w", ctl, err)
		}
	}

	for _, shape := range data {
		cvsJSON, err := json.Marshal(shape.CVs)
		if err != nil {
			return fmt.Errorf("apply shape to %s: encode cvs: %w", ctl, err)
		}
		shapeNode, err := g.CreateNode(scene.NurbsCurve, ctl+"Shape")
		if err != nil {
			return fmt.Errorf("apply shape to %s: %w", ctl, err)
		}
		if err := g.Parent(shapeNode, ctl); err != nil {
			return fmt.Errorf("apply shape to %s: %w", ctl, err)
		}
		sets := []struct {
			attr  string
			value scene.Value
		}{
			{"degree", scene.FloatValue(float64(shape.Degree))},
			{"cvs", scene.StringValue(string(cvsJSON))},
			{"overrideEnabled", scene.BoolValue(shape.EnableOverrides)},
			{"overrideRGBColors", scene.BoolValue(shape.UseRGB)},
			{"overrideColor", scene.FloatValue(float64(shape.ColorIndex))},
			{"overrideColorRGB", scene.VectorValue(shape.ColorRGB[0], shape.ColorRGB[1], shape.ColorRGB[2])},
		}
		for _, set := range sets {
			if err := g.SetAttr(shapeNode, set.attr, set.value); err != nil {
				return fmt.Errorf("apply shape to %s: %w", ctl, err)
			}
		}
	}
	return nil
}

func curveShapes(g scene.Graph, ctl string) ([]string, error) {
	children, err := g.Children(ctl)
	if err != nil {
		return nil, fmt.Errorf("list shapes under %s: %w", ctl, err)
	}
	var out []string
	for _, child := range children {
		typ, err := g.TypeOf(child)
		if err != nil {
			continue
		}
		if typ == scene.NurbsCurve {
			out = append(out, child)
		}
	}
	return out, nil
}

// Encode serializes shape data as a versioned JSON blob.
func Encode(data Data) (string, error) {
	blob, err := json.Marshal(envelope{Version: codecVersion, Shapes: data})
	if err != nil {
		return "", fmt.Errorf("encode shape data: %w", err)
	}
	return string(blob), nil
}

// Decode parses a blob produced by Encode, reporting ok=false for empty,
// malformed, or incompatible data.
func Decode(blob string) (Data, bool) {
	if strings.TrimSpace(blob) == "" {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return nil, false
	}
	if env.Version != codecVersion || len(env.Shapes) == 0 {
		return nil, false
	}
	return env.Shapes, true
}
