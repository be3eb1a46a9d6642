package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectPostgres_BadURL(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), "postgres://%zz", time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "postgres config")
}

func TestConnectMongo_Unreachable(t *testing.T) {
	_, err := ConnectMongo(context.Background(), "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=100", 300*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mongo ping")
}

func TestConnectMongo_BadURI(t *testing.T) {
	_, err := ConnectMongo(context.Background(), "redis://localhost:6379", time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mongo config")
}
