// Package repos proxies repository listing and deletion to GitHub using the
// access token mapped to the caller's provider user id.
package repos

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/go-github/v57/github"
)

// PageSize is the number of repositories fetched per listing. Only the first page is returned.
const PageSize = 100

var (
	// ErrReauthRequired is returned when a valid session has no mapped access token.
	ErrReauthRequired = errors.New("no access token for user; sign in again")
	// ErrUpstream wraps every failure reported by the provider API.
	ErrUpstream = errors.New("github api request failed")
	// ErrInvalidRepository is returned for owner or name values GitHub would never accept.
	ErrInvalidRepository = errors.New("invalid repository owner or name")
)

var (
	ownerPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_-]{0,38})$`)
	namePattern  = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)
)

type tokenReader interface {
	Get(userID string) (string, bool)
}

type clientFactory interface {
	ForToken(token string) *github.Client
}

// Listing is one page of the user's repositories.
type Listing struct {
	Repositories []*github.Repository
	// Truncated is true when GitHub reports further pages that were not fetched.
	Truncated bool
}

// Service issues provider calls on behalf of a user. It keeps no state between calls.
type Service struct {
	tokens  tokenReader
	clients clientFactory
}

// NewService constructs a Service.
func NewService(tokens tokenReader, clients clientFactory) *Service {
	return &Service{tokens: tokens, clients: clients}
}

// List returns the first page of repositories visible to userID, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) (Listing, error) {
	client, err := s.clientFor(userID)
	if err != nil {
		return Listing{}, err
	}

	opts := &github.RepositoryListOptions{
		Visibility:  "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: PageSize},
	}

	// An empty user selects /user/repos, which includes private repositories.
	repositories, resp, err := client.Repositories.List(ctx, "", opts)
	if err != nil {
		return Listing{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if repositories == nil {
		repositories = []*github.Repository{}
	}

	return Listing{
		Repositories: repositories,
		Truncated:    resp != nil && resp.NextPage != 0,
	}, nil
}

// Delete issues exactly one provider delete for owner/name.
func (s *Service) Delete(ctx context.Context, userID, owner, name string) error {
	if !ValidRepository(owner, name) {
		return ErrInvalidRepository
	}

	client, err := s.clientFor(userID)
	if err != nil {
		return err
	}

	if _, err := client.Repositories.Delete(ctx, owner, name); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return nil
}

// ValidRepository reports whether owner and name are well-formed GitHub identifiers.
func ValidRepository(owner, name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return ownerPattern.MatchString(owner) && namePattern.MatchString(name)
}

func (s *Service) clientFor(userID string) (*github.Client, error) {
	token, ok := s.tokens.Get(userID)
	if !ok || token == "" {
		return nil, ErrReauthRequired
	}
	return s.clients.ForToken(token), nil
}
