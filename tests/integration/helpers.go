//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container configuration constants
const (
	mongoImage            = "mongo:7"
	mongoPort             = "27017/tcp"
	testDatabaseName      = "backend_integration_test"
	containerStartTimeout = 120 * time.Second
)

// TestInfrastructure holds the MongoDB container used by the tests.
type TestInfrastructure struct {
	MongoContainer testcontainers.Container
	MongoURI       string
}

// SetupTestInfrastructure starts a MongoDB container and registers its
// termination with t.
func SetupTestInfrastructure(t *testing.T) *TestInfrastructure {
	ctx := context.Background()

	container := setupMongoContainer(t, ctx)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate MongoDB container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err, "Failed to get MongoDB container host")

	mappedPort, err := container.MappedPort(ctx, mongoPort)
	require.NoError(t, err, "Failed to get MongoDB mapped port")

	return &TestInfrastructure{
		MongoContainer: container,
		MongoURI:       fmt.Sprintf("mongodb://%s:%s/%s", host, mappedPort.Port(), testDatabaseName),
	}
}

func setupMongoContainer(t *testing.T, ctx context.Context) testcontainers.Container {
	req := testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{mongoPort},
		WaitingFor: wait.ForAll(
			wait.ForLog("Waiting for connections"),
			wait.ForListeningPort(mongoPort),
		).WithDeadline(containerStartTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start MongoDB container")

	t.Logf("MongoDB container started successfully")
	return container
}
