package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

const (
	charset             = "0123456789abcdefghijklmnopqrstuvwxyz"
	shortCodeLength     = 6
	maxGenerateAttempts = 5
)

var errCodeSpaceExhausted = errors.New("could not generate an unused short code")

// ShortCodeGenerator produces the code for a new link, either the caller's alias
// or a random base-36 string checked against existing codes.
type ShortCodeGenerator struct {
	repo   ports.LinkRepository
	random func(length int) (string, error)
}

func NewShortCodeGenerator(repo ports.LinkRepository) *ShortCodeGenerator {
	return &ShortCodeGenerator{repo: repo, random: generateShortCode}
}

func (g *ShortCodeGenerator) Generate(ctx context.Context, alias string) (string, error) {
	if alias != "" {
		existing, err := g.repo.GetLinkByShortCode(ctx, alias)
		if err != nil {
			return "", fmt.Errorf("check alias: %w", err)
		}
		if existing != nil {
			return "", domain.ErrAliasConflict
		}
		return alias, nil
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := g.random(shortCodeLength)
		if err != nil {
			return "", err
		}
		existing, err := g.repo.GetLinkByShortCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check generated code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errCodeSpaceExhausted
}

func generateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
