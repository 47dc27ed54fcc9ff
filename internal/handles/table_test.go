package handles

import (
	"errors"
	"testing"

	"github.com/danmuck/renderd/internal/api"
	"github.com/danmuck/renderd/internal/scene"
	"github.com/danmuck/renderd/internal/testutil/testlog"
)

func TestBindLookupRelease(t *testing.T) {
	testlog.Start(t)

	table := NewTable()
	model := scene.NewModel()
	if err := table.Bind(7, model); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if model.RefCount() != 1 {
		t.Fatalf("bind should take one reference, got %d", model.RefCount())
	}
	got, err := table.Lookup(7)
	if err != nil || got != model {
		t.Fatalf("lookup: got=%v err=%v", got, err)
	}
	destroyed, err := table.Release(7)
	if err != nil || !destroyed {
		t.Fatalf("release: destroyed=%v err=%v", destroyed, err)
	}
	if table.Bound(7) || table.Len() != 0 {
		t.Fatalf("handle still bound after release")
	}
}

func TestBindRejectsNullAndDuplicate(t *testing.T) {
	testlog.Start(t)

	table := NewTable()
	if err := table.Bind(api.NullHandle, scene.NewModel()); !errors.Is(err, ErrNullHandle) {
		t.Fatalf("expected ErrNullHandle, got %v", err)
	}
	first := scene.NewModel()
	if err := table.Bind(3, first); err != nil {
		t.Fatalf("bind: %v", err)
	}
	second := scene.NewModel()
	if err := table.Bind(3, second); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
	if second.RefCount() != 0 {
		t.Fatalf("rejected bind took a reference")
	}
	if err := table.Bind(4, nil); !errors.Is(err, ErrNilObject) {
		t.Fatalf("expected ErrNilObject, got %v", err)
	}
}

func TestUnboundLookup(t *testing.T) {
	testlog.Start(t)

	table := NewTable()
	_, err := table.Lookup(99)
	var unbound *UnboundHandleError
	if !errors.As(err, &unbound) || unbound.Handle != 99 {
		t.Fatalf("expected UnboundHandleError for #99, got %v", err)
	}
	if _, err := table.Release(99); !errors.As(err, &unbound) {
		t.Fatalf("expected UnboundHandleError on release, got %v", err)
	}
	obj, err := table.LookupOrNull(api.NullHandle)
	if err != nil || obj != nil {
		t.Fatalf("null handle should resolve to nil: obj=%v err=%v", obj, err)
	}
}

func TestReleaseKeepsSharedObjectAlive(t *testing.T) {
	testlog.Start(t)

	table := NewTable()
	model := scene.NewModel()
	geom := scene.NewTriangleMesh()
	if err := table.Bind(1, model); err != nil {
		t.Fatalf("bind model: %v", err)
	}
	if err := table.Bind(2, geom); err != nil {
		t.Fatalf("bind geometry: %v", err)
	}
	model.AddGeometry(geom)

	destroyed, err := table.Release(2)
	if err != nil || destroyed {
		t.Fatalf("geometry should survive via model: destroyed=%v err=%v", destroyed, err)
	}
	if geom.RefCount() != 1 {
		t.Fatalf("unexpected geometry refs: %d", geom.RefCount())
	}
	if _, err := table.Release(1); err != nil {
		t.Fatalf("release model: %v", err)
	}
	if !geom.Destroyed() {
		t.Fatalf("geometry not destroyed after its last holder went away")
	}
}

func TestHandlesSortedAndReleaseAll(t *testing.T) {
	testlog.Start(t)

	table := NewTable()
	for _, h := range []api.Handle{9, 2, 5} {
		if err := table.Bind(h, scene.NewModel()); err != nil {
			t.Fatalf("bind %s: %v", h, err)
		}
	}
	got := table.Handles()
	if len(got) != 3 || got[0] != 2 || got[1] != 5 || got[2] != 9 {
		t.Fatalf("unexpected handle order: %v", got)
	}
	if counts := table.CountByKind(); counts["model"] != 3 {
		t.Fatalf("unexpected kind counts: %v", counts)
	}
	if err := table.ReleaseAll(); err != nil {
		t.Fatalf("release all: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("table not empty after ReleaseAll")
	}
}
