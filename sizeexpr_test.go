package imager

import (
	"errors"
	"math"
	"testing"
)

func TestEvalSizeExpr(t *testing.T) {
	tests := []struct {
		expr string
		v    float64
		want float64
	}{
		{"$v", 100, 100},
		{"$v/2", 100, 50},
		{"$v * 0.5 + 10", 100, 60},
		{"($v - 20) / 2", 100, 40},
		{"-$v + 200", 150, 50},
		{"2 * (3 + 4)", 0, 14},
		{"$v * $v", 8, 64},
		{"  $v  ", 7, 7},
		{"1.5 + 2.25", 0, 3.75},
	}

	for _, tt := range tests {
		got, err := EvalSizeExpr(tt.expr, tt.v)
		if err != nil {
			t.Errorf("EvalSizeExpr(%q, %v) failed: %v", tt.expr, tt.v, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("EvalSizeExpr(%q, %v): got %v, want %v", tt.expr, tt.v, got, tt.want)
		}
	}
}

func TestEvalSizeExpr_Invalid(t *testing.T) {
	tests := []string{
		"",
		"$w",
		"$v +",
		"(1 + 2",
		"1 / 0",
		"eval('x')",
		"1 2",
		"$v; drop",
	}

	for _, expr := range tests {
		_, err := EvalSizeExpr(expr, 10)
		if err == nil {
			t.Errorf("EvalSizeExpr(%q) should fail", expr)
			continue
		}
		if !errors.Is(err, ErrConfig) {
			t.Errorf("EvalSizeExpr(%q): error %v should wrap ErrConfig", expr, err)
		}
	}
}

func TestResolveStyles(t *testing.T) {
	rules := StyleRules{
		"width":    "$v/2",
		"height":   "$v",
		"position": "absolute",
	}

	styles, err := resolveStyles(rules, 300)
	if err != nil {
		t.Fatalf("resolveStyles failed: %v", err)
	}
	if styles["width"] != "150px" {
		t.Errorf("width: got %q, want 150px", styles["width"])
	}
	if styles["height"] != "300px" {
		t.Errorf("height: got %q, want 300px", styles["height"])
	}
	if styles["position"] != "absolute" {
		t.Errorf("position: got %q, want verbatim pass-through", styles["position"])
	}
}

func TestResolveStyles_BadRule(t *testing.T) {
	_, err := resolveStyles(StyleRules{"width": "$v +"}, 10)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("got %v, want ErrConfig", err)
	}
}
