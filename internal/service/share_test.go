package service

import (
	"context"
	"errors"
	"testing"

	"github.com/farhan/ranklab/internal/apperror"
)

func TestResolve_MalformedCodeSkipsStore(t *testing.T) {
	repo := newMockRepo()
	svc := NewShareService(repo, testLogger())

	for _, code := range []string{"AB12", "toolong7", "AB 2cd", ""} {
		_, err := svc.Resolve(context.Background(), code)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Resolve(%q) error = %v, want ErrValidation", code, err)
		}
	}
	if repo.codeCalls != 0 {
		t.Errorf("store was queried %d times for malformed codes, want 0", repo.codeCalls)
	}
}

func TestResolve_ValidFormatNoMatch(t *testing.T) {
	repo := newMockRepo()
	svc := NewShareService(repo, testLogger())

	_, err := svc.Resolve(context.Background(), "ZZZZZZ")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
	if repo.codeCalls != 1 {
		t.Errorf("store queried %d times, want 1", repo.codeCalls)
	}
}

func TestResolve_Found(t *testing.T) {
	repo := newMockRepo()
	lists := NewListService(repo, testLogger())
	svc := NewShareService(repo, testLogger())

	list, err := lists.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	public := true
	published, err := lists.Update(context.Background(), "user-1", list.ID, ListPatch{IsPublic: &public})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := svc.Resolve(context.Background(), *published.ShareCode)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if found.ID != list.ID {
		t.Errorf("Resolve() = %s, want %s", found.ID, list.ID)
	}
}
