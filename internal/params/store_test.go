package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreSetAndGet(t *testing.T) {
	s, err := NewMagStore(nil)
	if err != nil {
		t.Fatal(err)
	}

	if v, _ := s.Float(MagXScale); v != 1 {
		t.Errorf("default scale = %v, want 1", v)
	}
	if err := s.SetInt(MagExtRot, 12); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFloat(MagYOff, -0.25); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Int(MagExtRot); v != 12 {
		t.Errorf("rotation = %d", v)
	}
	if v, _ := s.Float(MagYOff); v != -0.25 {
		t.Errorf("y offset = %v", v)
	}

	if err := s.SetFloat("SENS_BOGUS", 1); !errors.Is(err, ErrUnknown) {
		t.Errorf("unknown set err = %v", err)
	}
	if err := s.SetFloat(MagExtRot, 1); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("kind mismatch err = %v", err)
	}
	if len(s.Values()) != 7 {
		t.Errorf("%d values, want 7", len(s.Values()))
	}
}

func roundTrip(t *testing.T, b Backend) {
	t.Helper()
	s, err := NewMagStore(b)
	if err != nil {
		t.Fatal(err)
	}
	s.SetInt(MagExtRot, 8)
	s.SetFloat(MagZOff, 0.125)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	again, err := NewMagStore(b)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := again.Int(MagExtRot); v != 8 {
		t.Errorf("reloaded rotation = %d", v)
	}
	if v, _ := again.Float(MagZOff); v != 0.125 {
		t.Errorf("reloaded z offset = %v", v)
	}
	if v, _ := again.Float(MagZScale); v != 1 {
		t.Errorf("reloaded z scale = %v", v)
	}
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	roundTrip(t, NewFileBackend(path))
	if _, err := os.Stat(path); err != nil {
		t.Errorf("params file not written: %v", err)
	}
}

func TestFileBackendMissingFile(t *testing.T) {
	vals, err := NewFileBackend(filepath.Join(t.TempDir(), "none.json")).Load()
	if err != nil || len(vals) != 0 {
		t.Errorf("got %v, %v", vals, err)
	}
}

func TestFileBackendSaveFails(t *testing.T) {
	s, _ := NewMagStore(NewFileBackend(filepath.Join(t.TempDir(), "missing", "params.json")))
	if err := s.Save(); err == nil {
		t.Error("expected save into missing directory to fail")
	}
}

func TestSQLiteBackend(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "params.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	roundTrip(t, b)
}
