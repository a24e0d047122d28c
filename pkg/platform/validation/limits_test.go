package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "veritok/pkg/domain-errors"
)

// LimitsSuite tests the validation helper functions.
//
// Justification: These are trust-boundary validators. The invariants
// "max+1 must fail" and "max must pass" are security-critical.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckSliceCount() {
	s.Run("passes when count equals max", func() {
		s.NoError(CheckSliceCount("attributes", MaxBundleEntries, MaxBundleEntries))
	})

	s.Run("passes when count is below max", func() {
		s.NoError(CheckSliceCount("attributes", 5, MaxBundleEntries))
	})

	s.Run("fails when count exceeds max", func() {
		err := CheckSliceCount("attributes", MaxBundleEntries+1, MaxBundleEntries)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "too many attributes")
	})
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes when length equals max", func() {
		s.NoError(CheckStringLength("attribute key", strings.Repeat("a", 100), 100))
	})

	s.Run("passes for empty string", func() {
		s.NoError(CheckStringLength("attribute key", "", 100))
	})

	s.Run("fails when length exceeds max", func() {
		err := CheckStringLength("attribute key", strings.Repeat("a", 101), 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "attribute key exceeds max length of 100")
	})
}

func (s *LimitsSuite) TestCheckEachStringLength() {
	s.Run("passes when all elements are within limit", func() {
		s.NoError(CheckEachStringLength("proof element", []string{"short", strings.Repeat("a", 100)}, 100))
	})

	s.Run("passes for nil slice", func() {
		s.NoError(CheckEachStringLength("proof element", nil, 100))
	})

	s.Run("fails when any element exceeds max", func() {
		err := CheckEachStringLength("proof element", []string{"short", strings.Repeat("a", 101)}, 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "proof element exceeds max length of 100")
	})
}
