package serviceutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(errors.New("boom")))
	require.Equal(t, 2, ExitCode(&ExitError{Code: 2}))
	require.Equal(t, 2, ExitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: 2})))
}
