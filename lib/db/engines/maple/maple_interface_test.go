package maple

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/db"
	dbtesting "github.com/ValentinKolb/typedkv/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB", func() db.KVDB {
		return NewMapleDB(nil)
	})
}

func TestFactorySegments(t *testing.T) {
	factory := NewFactory(nil)

	a, err := factory(1)
	if err != nil {
		t.Fatalf("factory(1) failed: %v", err)
	}
	if _, _, err := a.Insert([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	again, _ := factory(1)
	if v, ok, _ := again.Get([]byte("k")); !ok || string(v) != "v" {
		t.Errorf("Expected reopened segment to share contents, got %q (ok=%v)", v, ok)
	}

	other, _ := factory(2)
	if ok, _ := other.Has([]byte("k")); ok {
		t.Errorf("Expected segments to be isolated")
	}

	if info := again.GetInfo(); info.Segment != 1 || info.DbType != db.ImplMaple || info.Len != 1 {
		t.Errorf("Unexpected info: %+v", info)
	}

	if _, err := factory(255); err == nil {
		t.Errorf("Expected reserved segment 255 to be rejected")
	}
}

func TestLoadKeepsDegree(t *testing.T) {
	src := NewMapleDB(nil)
	for i := 0; i < 100; i++ {
		_, _, _ = src.Insert([]byte(fmt.Sprintf("key-%03d", i)), []byte("v"))
	}
	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := newMaple(0, &DBOptions{Degree: 2})
	if err := dst.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if dst.degree != 2 {
		t.Errorf("degree after Load = %d, want 2", dst.degree)
	}
	if n, _ := dst.Len(); n != 100 {
		t.Errorf("Len after Load = %d, want 100", n)
	}
	if k, _, ok, _ := dst.Last(); !ok || string(k) != "key-099" {
		t.Errorf("Last after Load = %q, want key-099", k)
	}
}

func Benchmark(t *testing.B) {
	dbtesting.RunKVDBBenchmarks(t, "MapleDB", func() db.KVDB {
		return NewMapleDB(nil)
	})
}
