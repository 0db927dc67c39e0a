package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container describes a database image to start for a test.
type Container struct {
	Image string
	Port  string
	Env   map[string]string
	Wait  wait.Strategy
}

// Start runs c and returns host:port of the exposed port. The container is
// terminated when the test ends.
func Start(t *testing.T, c Container) string {
	t.Helper()
	RequireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	req := tc.ContainerRequest{
		Image:        c.Image,
		ExposedPorts: []string{c.Port},
		Env:          c.Env,
		WaitingFor:   c.Wait,
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("container %s: %v", c.Image, err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := cont.MappedPort(ctx, nat.Port(c.Port))
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port())
}
