package mongostore

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/fintrack/store"
	"github.com/etnz/fintrack/store/storetest"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
)

// startMongo starts a MongoDB container and returns its uri. With replicaSet,
// the server is a single member replica set.
func startMongo(t *testing.T, replicaSet bool) string {
	t.Helper()
	if os.Getenv("FINTRACK_INTEGRATION") != "1" {
		t.Skip("set FINTRACK_INTEGRATION=1 to run MongoDB integration tests")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
	if replicaSet {
		req.Cmd = []string{"--replSet", "rs0", "--bind_ip_all"}
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start MongoDB container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	if replicaSet {
		code, _, err := container.Exec(ctx, []string{"mongosh", "--quiet", "--eval",
			"rs.initiate({_id: 'rs0', members: [{_id: 0, host: 'localhost:27017'}]})"})
		if err != nil || code != 0 {
			t.Fatalf("initiate replica set: exit code %d, %v", code, err)
		}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get MongoDB host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		t.Fatalf("get MongoDB port: %v", err)
	}
	return fmt.Sprintf("mongodb://%s:%s/?directConnection=true", host, port.Port())
}

// storeFactory opens a store on a fresh database of uri for each test.
func storeFactory(uri string, transactions bool) func(t *testing.T) store.Store {
	var n atomic.Int32
	return func(t *testing.T) store.Store {
		s, err := openPrimary(t, uri, fmt.Sprintf("fintrack_test_%d", n.Add(1)))
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		t.Cleanup(func() { s.Close(context.Background()) })
		if s.transactions != transactions {
			t.Fatalf("Open().transactions = %v, want %v", s.transactions, transactions)
		}
		return s
	}
}

// openPrimary retries Open while a freshly initiated replica set elects its
// primary.
func openPrimary(t *testing.T, uri, database string) (*Store, error) {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(30 * time.Second)
	for {
		s, err := Open(ctx, uri, database)
		if err != nil {
			return nil, err
		}
		var hello struct {
			Primary bool `bson:"isWritablePrimary"`
		}
		if err := s.db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
			s.Close(ctx)
			return nil, err
		}
		if hello.Primary || time.Now().After(deadline) {
			return s, nil
		}
		s.Close(ctx)
		time.Sleep(500 * time.Millisecond)
	}
}

func TestStore(t *testing.T) {
	storetest.Run(t, storeFactory(startMongo(t, false), false))
}

func TestStore_ReplicaSet(t *testing.T) {
	storetest.Run(t, storeFactory(startMongo(t, true), true))
}

func TestFilter(t *testing.T) {
	if got := filter(store.All()); len(got) != 0 {
		t.Errorf("filter(All()) = %v, want empty filter", got)
	}
	got := filter(store.All().From("date", "2020-01-01").In("accountId"))
	if len(got) != 1 || got[0].Key != "$and" {
		t.Fatalf("filter() = %v, want a single $and clause", got)
	}
}
