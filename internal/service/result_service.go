package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stemsi/exstem-cbt/internal/model"
)

const (
	defaultResultsPerPage = 20
	maxResultsPerPage     = 100
)

// ResultLister is the read side of the result store.
type ResultLister interface {
	ListByToken(ctx context.Context, token string, limit, offset int) ([]model.ResultRow, int, error)
}

// ResultService serves stored quiz results to administrators.
type ResultService struct {
	repo ResultLister
}

// NewResultService creates a new ResultService.
func NewResultService(repo ResultLister) *ResultService {
	return &ResultService{repo: repo}
}

// ResultPage is one page of results with the normalized paging parameters.
type ResultPage struct {
	Results []model.ResultRow
	Page    int
	PerPage int
	Total   int
}

// List returns one page of results for a token, newest first. Out-of-range
// paging parameters are clamped.
func (s *ResultService) List(ctx context.Context, token string, page, perPage int) (*ResultPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultResultsPerPage
	}
	if perPage > maxResultsPerPage {
		perPage = maxResultsPerPage
	}

	rows, total, err := s.repo.ListByToken(ctx, strings.ToUpper(strings.TrimSpace(token)), perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return &ResultPage{Results: rows, Page: page, PerPage: perPage, Total: total}, nil
}
