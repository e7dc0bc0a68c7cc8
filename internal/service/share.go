package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farhan/ranklab/internal/apperror"
	"github.com/farhan/ranklab/internal/model"
	"github.com/farhan/ranklab/internal/repository"
	"github.com/farhan/ranklab/internal/sharecode"
)

// ShareService resolves published lists by share code for anonymous
// requesters — no ownership checks, read-only.
type ShareService struct {
	repo   repository.ListRepository
	logger *slog.Logger
}

func NewShareService(repo repository.ListRepository, logger *slog.Logger) *ShareService {
	return &ShareService{repo: repo, logger: logger}
}

// Resolve returns the public, non-deleted list carrying the code, items
// ordered by rank ascending.
//
// Malformed codes fail validation before any store access; a well-formed
// code with no match reports not-found. Callers cannot distinguish a wrong
// code from a list made private — that is deliberate.
func (s *ShareService) Resolve(ctx context.Context, code string) (*model.List, error) {
	if !sharecode.Valid(code) {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("share code must be %d alphanumeric characters", sharecode.Length))
	}

	list, err := s.repo.GetByShareCode(ctx, code)
	if err != nil {
		if !apperror.IsNotFound(err) {
			s.logger.Error("failed to resolve share code", slog.String("error", err.Error()))
		}
		return nil, err
	}
	return list, nil
}
