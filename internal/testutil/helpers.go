package testutil

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/edgar"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/logging"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/openfigi"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/repository"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/service"
)

// NewTestQueryService wires a QueryService on the given database.
func NewTestQueryService(t *testing.T, db *sql.DB) *service.QueryService {
	t.Helper()

	return service.NewQueryService(
		repository.NewFundRepository(db),
		repository.NewFilingRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewRelationshipRepository(db),
	)
}

// NewTestLoaderService wires a LoaderService on the given database with mock
// network collaborators and the given maximum expansion depth.
func NewTestLoaderService(t *testing.T, db *sql.DB, fetcher edgar.Client, resolver openfigi.Resolver, maxDepth int) *service.LoaderService {
	t.Helper()

	return service.NewLoaderService(
		db,
		repository.NewFundRepository(db),
		repository.NewFilingRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewRelationshipRepository(db),
		fetcher,
		resolver,
		config.LoaderConfig{MaxDepth: maxDepth},
		logging.Discard(),
	)
}

// NewTestSystemService wires a SystemService on the given database.
func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeTicker generates a mutual fund style ticker for testing.
//
// Example usage:
//
//	ticker := testutil.MakeTicker()
//	// Returns: "T4KQX"
func MakeTicker() string {
	return "T" + randomAlphanumeric(3) + "X"
}

// MakeCUSIP generates a 9 character CUSIP for testing.
func MakeCUSIP() string {
	return randomAlphanumeric(9)
}

// MakeFundName generates a unique fund name for testing.
//
// Example usage:
//
//	name := testutil.MakeFundName("Tech Fund")
//	// Returns: "Tech Fund XYZ789"
func MakeFundName(base string) string {
	if base == "" {
		base = "Fund"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	return randomFrom(charset, length)
}

func randomDigits(length int) string {
	return randomFrom("0123456789", length)
}

func randomFrom(charset string, length int) string {
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
