package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobEnvelope(t *testing.T) {
	t.Parallel()

	// given
	payload := EmailPayload{
		EmailType:      "ticket",
		EventID:        uuid.New(),
		RegistrationID: uuid.New(),
		RecipientEmail: "gading@email.com",
	}

	// when
	job, err := NewJob(JobTypeEmail, payload)
	require.NoError(t, err)
	var got EmailPayload
	err = job.Decode(&got)

	// then
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, JobTypeEmail, job.Type)
	assert.Zero(t, job.Attempt)
	assert.NotEmpty(t, job.ID)
}

func TestJobDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	job := &Job{ID: "1", Type: JobTypeEmail, Payload: []byte(`"not an object"`)}
	var got EmailPayload
	assert.Error(t, job.Decode(&got))
}
