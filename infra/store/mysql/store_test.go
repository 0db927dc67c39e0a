package mysql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/infra/store/storetest"
)

func TestConformance(t *testing.T) {
	addr := storetest.Start(t, storetest.Container{
		Image: "mysql:8.0",
		Port:  "3306/tcp",
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "worklog",
			"MYSQL_DATABASE":      "worklog",
		},
		Wait: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(2 * time.Minute),
	})
	s, err := Open(context.Background(), fmt.Sprintf("root:worklog@tcp(%s)/worklog", addr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	storetest.Run(t, func(t *testing.T) (ledger.Store, fleet.Registry) {
		for _, table := range []string{"work_logs", "vehicles", "users"} {
			_, err := s.DB().Exec("TRUNCATE TABLE " + table)
			require.NoError(t, err)
		}
		return s, s.Directory()
	})
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: errDuplicateEntry}))
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: errDuplicateEntry})))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1213}))
	assert.False(t, isDuplicate(nil))
}

func TestClassify_InvalidConn(t *testing.T) {
	err := Classify(mysql.ErrInvalidConn)
	assert.ErrorIs(t, err, ledger.ErrStorageUnavailable)
	assert.NoError(t, Classify(nil))
}
