package scheduler

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidTimezone(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	_, err := New("Mars/Olympus", logger)
	assert.Error(t, err)
}

func TestAddJob_ListsScheduledJobs(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	s, err := New("UTC", logger)
	require.NoError(t, err)

	noop := func(context.Context) error { return nil }
	require.NoError(t, s.AddJob("cycle", "@every 6h", noop))
	assert.Error(t, s.AddJob("broken", "not a schedule", noop))

	s.Start(context.Background())
	defer s.Stop()

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "cycle", jobs[0].Name)
	assert.False(t, jobs[0].NextRun.IsZero())
}
