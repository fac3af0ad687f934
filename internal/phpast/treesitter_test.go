//go:build cgo

package phpast

import (
	"context"
	"testing"
)

func TestParser_Calls(t *testing.T) {
	src := []byte(`<?php
mysql_connect($host);
$db->query($sql);
Cache::flush();
$item = new \App\Item();
`)

	root, err := NewParser().Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := Extract("a.php", root)
	want := []struct {
		name string
		kind ConstructKind
		line int
	}{
		{"mysql_connect", KindFunctionCall, 2},
		{"query", KindMethodCall, 3},
		{"Cache::flush", KindStaticCall, 4},
		{"App\\Item", KindInstantiation, 5},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Kind != w.kind || got[i].Line != w.line {
			t.Errorf("construct %d = %+v, want %s %s line %d", i, got[i], w.name, w.kind, w.line)
		}
	}
}

func TestParser_TypeReferences(t *testing.T) {
	src := []byte(`<?php
class Child extends \Base\P implements I1, I2 {
    use T1, T2;
    public function run(Foo $a, ?Bar $b, X|Y $c, int $d) {
        if ($a instanceof Baz) {}
        try {} catch (E1 | E2 $e) {}
        return Cls::LIMIT + static::m() + $this::m();
    }
}
`)

	root, err := NewParser().Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := Extract("a.php", root)
	want := []struct {
		name string
		kind ConstructKind
		line int
	}{
		{"Base\\P", KindExtends, 2},
		{"I1", KindImplements, 2},
		{"I2", KindImplements, 2},
		{"T1", KindUseTrait, 3},
		{"T2", KindUseTrait, 3},
		{"Foo", KindTypeHint, 4},
		{"Bar", KindTypeHint, 4},
		{"X", KindTypeHint, 4},
		{"Y", KindTypeHint, 4},
		{"Baz", KindInstanceof, 5},
		{"E1", KindCatchType, 6},
		{"E2", KindCatchType, 6},
		{"Cls", KindConstAccess, 7},
		{"static::m", KindStaticCall, 7},
		{"m", KindStaticCall, 7},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d constructs, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Kind != w.kind || got[i].Line != w.line {
			t.Errorf("construct %d = %+v, want %s %s line %d", i, got[i], w.name, w.kind, w.line)
		}
	}
}

func TestParser_IgnoresStringsAndComments(t *testing.T) {
	src := []byte(`<?php
// each($arr) is gone
$s = "each($arr)";
`)

	root, err := NewParser().Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for _, c := range Extract("a.php", root) {
		if c.Name == "each" {
			t.Errorf("structural pass should not see each() in %v", c)
		}
	}
}

func TestParser_DynamicCallIsSkipped(t *testing.T) {
	root, err := NewParser().Parse(context.Background(), []byte("<?php\n$fn($x);\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := Extract("a.php", root); len(got) != 0 {
		t.Errorf("variable function call should not produce a construct, got %+v", got)
	}
}

func TestIsAvailable(t *testing.T) {
	if !IsAvailable() {
		t.Error("IsAvailable() should be true in cgo builds")
	}
}
