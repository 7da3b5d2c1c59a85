/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package connect

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
)

func open(t *testing.T, endpoint, key string) (datastore.Backend, error) {
	t.Helper()
	return Open(context.Background(), endpoint, key, datastore.DefaultConnectionPolicy(), zerolog.Nop())
}

func TestOpen_Memory(t *testing.T) {
	b, err := open(t, "memory://", "unused")
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Kind())
	assert.NoError(t, b.Ping(context.Background()))
}

func TestOpen_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	b, err := open(t, "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer b.Close(context.Background())
	assert.Equal(t, "redis", b.Kind())
}

func TestOpen_DynamoDB(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	b, err := open(t, "dynamodb://us-west-2", "AKID:SECRET")
	require.NoError(t, err)
	assert.Equal(t, "dynamodb", b.Kind())

	b, err = open(t, "dynamodb+http://localhost:8000?region=local", "AKID:SECRET")
	require.NoError(t, err)
	assert.Equal(t, "dynamodb", b.Kind())
}

func TestOpen_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		key      string
		field    string
	}{
		{"unknown scheme", "cosmos://account.documents.azure.com", "k", "endpoint"},
		{"no scheme", "localhost:8081", "k", "endpoint"},
		{"dynamodb key without secret", "dynamodb://us-west-2", "AKIDONLY", "key"},
		{"dynamodb key with blank half", "dynamodb://us-west-2", "AKID: ", "key"},
		{"dynamodb without region", "dynamodb://", "AKID:SECRET", "endpoint"},
		{"dynamodb local without host", "dynamodb+http://", "AKID:SECRET", "endpoint"},
		{"malformed redis url", "redis://host:notaport", "pw", "endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := open(t, tt.endpoint, tt.key)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidConfiguration(err), "got %v", err)

			var cfgErr *errors.InvalidConfigurationError
			if assert.ErrorAs(t, err, &cfgErr) {
				assert.Equal(t, tt.field, cfgErr.Field)
			}
		})
	}
}
