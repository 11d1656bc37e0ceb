package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCombineRejectsEmptyClipList(t *testing.T) {
	a := NewAssembler()

	_, err := a.Combine(context.Background(), nil, "audio.mp3", "out.mp4", 2.0)
	if err == nil {
		t.Fatal("expected error for empty clip list")
	}

	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) {
		t.Fatalf("expected *AssemblyError, got %T: %v", err, err)
	}
	if asmErr.Op != "validate" {
		t.Errorf("Op = %q, want %q", asmErr.Op, "validate")
	}
}

func TestCombineRejectsMissingClip(t *testing.T) {
	a := NewAssembler()
	dir := t.TempDir()

	_, err := a.Combine(context.Background(),
		[]string{filepath.Join(dir, "does-not-exist.mp4")},
		filepath.Join(dir, "audio.mp3"),
		filepath.Join(dir, "out.mp4"),
		2.0)
	if err == nil {
		t.Fatal("expected error for missing clip")
	}

	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) {
		t.Fatalf("expected *AssemblyError, got %T: %v", err, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestCombineRejectsMissingNarration(t *testing.T) {
	a := NewAssembler()
	dir := t.TempDir()

	clip := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(clip, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := a.Combine(context.Background(),
		[]string{clip},
		filepath.Join(dir, "missing-audio.mp3"),
		filepath.Join(dir, "out.mp4"),
		2.0)
	if err == nil {
		t.Fatal("expected error for missing narration audio")
	}

	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) {
		t.Fatalf("expected *AssemblyError, got %T: %v", err, err)
	}
}
