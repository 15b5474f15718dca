package plancache

import (
	"testing"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
	"github.com/lychee-technology/colbeam/internal/predicate"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIgnoresConstants(t *testing.T) {
	scan := &logicalplan.Scan{RowCount: 100}
	f1 := &logicalplan.Filter{Input: scan, Predicates: []predicate.Predicate{
		&predicate.Comparison{Column: 1, Op: predicate.Gt, Constant: 10},
	}}
	f2 := &logicalplan.Filter{Input: scan, Predicates: []predicate.Predicate{
		&predicate.Comparison{Column: 1, Op: predicate.Gt, Constant: 999},
	}}
	require.Equal(t, Fingerprint(f1), Fingerprint(f2))
}

func TestFingerprintDiffersOnShape(t *testing.T) {
	scan := &logicalplan.Scan{RowCount: 100}
	f1 := &logicalplan.Filter{Input: scan, Predicates: []predicate.Predicate{
		&predicate.Comparison{Column: 1, Op: predicate.Gt, Constant: 10},
	}}
	f2 := &logicalplan.Filter{Input: scan, Predicates: []predicate.Predicate{
		&predicate.Comparison{Column: 2, Op: predicate.Gt, Constant: 10},
	}}
	require.NotEqual(t, Fingerprint(f1), Fingerprint(f2))
}

func TestGetOrCompileCachesAndEvicts(t *testing.T) {
	c := New(2)
	cfg := physicalplan.DefaultConfig()

	p1, fp1 := c.GetOrCompile(&logicalplan.Scan{RowCount: 1}, cfg)
	require.NotNil(t, p1)
	require.Equal(t, 1, c.Len())

	p1Again, fp1Again := c.GetOrCompile(&logicalplan.Scan{RowCount: 1}, cfg)
	require.Equal(t, fp1, fp1Again)
	require.Same(t, p1, p1Again)

	c.GetOrCompile(&logicalplan.Scan{RowCount: 2000}, cfg)
	c.GetOrCompile(&logicalplan.Scan{RowCount: 60000}, cfg)
	require.LessOrEqual(t, c.Len(), 2)
}
