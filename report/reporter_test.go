package report

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func TestReporterCheckpoints(t *testing.T) {
	r := NewReporter()
	require.False(t, r.HasErrors())

	cp0 := r.Checkpoint()
	r.Warnf(SourceLocation{Line: 1, Column: 1}, "something looks off")
	require.False(t, r.HasErrorsSince(cp0), "warnings are not errors")

	cp1 := r.Checkpoint()
	r.Errorf(SourceLocation{Line: 3, Column: 7}, "bad call arity: want %d, got %d", 2, 3)
	require.True(t, r.HasErrorsSince(cp0))
	require.True(t, r.HasErrorsSince(cp1))

	cp2 := r.Checkpoint()
	require.False(t, r.HasErrorsSince(cp2))
}

func TestReporterEnumeration(t *testing.T) {
	r := NewReporter()
	r.Errorf(SourceLocation{Line: 1, Column: 2}, "first")
	r.Warnf(SourceLocation{Line: 2, Column: 2}, "second")
	r.Errorf(SourceLocation{Line: 3, Column: 2}, "third")

	errs := r.Errors()
	require.Len(t, errs, 2)
	require.Equal(t, "first", errs[0].Message)
	require.Equal(t, "third", errs[1].Message)

	warns := r.Warnings()
	require.Len(t, warns, 1)
	require.Equal(t, "second", warns[0].Message)
}

func TestAggregateSinceBundlesWarnings(t *testing.T) {
	r := NewReporter()
	cp := r.Checkpoint()
	r.Warnf(SourceLocation{Line: 1, Column: 1}, "advisory")
	require.NoError(t, r.AggregateSince(cp), "warnings alone are not a failure")

	r.Errorf(SourceLocation{Line: 2, Column: 1}, "broken")
	err := r.AggregateSince(cp)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2, "the warning rides along with the failure")
}

func TestInternalDiagnosticCarriesTrace(t *testing.T) {
	r := NewReporter()
	cause := fmt.Errorf("index out of range in emitter")
	r.Internal("ns.broken", SourceLocation{Filename: "main.tpl", Line: 4, Column: 9}, cause)

	errs := r.Errors()
	require.Len(t, errs, 1)
	d := errs[0]
	require.True(t, d.Internal)
	require.Equal(t, "ns.broken", d.Template)
	require.ErrorIs(t, d, cause)
	require.Contains(t, d.Error(), "internal compiler error")

	friendly := d.FriendlyErrorMessage()
	require.Contains(t, friendly, "in template ns.broken")
	require.Contains(t, friendly, "compiler trace:")
}

func TestFriendlyMessageCaret(t *testing.T) {
	r := NewReporter()
	r.Errorf(SourceLocation{
		Filename: "greet.tpl",
		Line:     2,
		Column:   5,
		Source:   "{if $x > }",
	}, "missing operand")

	friendly := r.Errors()[0].FriendlyErrorMessage()
	require.Contains(t, friendly, "greet.tpl:2:5")
	require.Contains(t, friendly, "{if $x > }")
	require.Contains(t, friendly, strings.Repeat(" ", 4)+"^")
}

func TestReporterConcurrentAppend(t *testing.T) {
	r := NewReporter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Errorf(SourceLocation{Line: n + 1, Column: 1}, "error %d", n)
		}(i)
	}
	wg.Wait()
	require.Len(t, r.Errors(), 50)
}
