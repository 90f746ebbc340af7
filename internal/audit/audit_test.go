package audit_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/technosupport/surveillance-core/internal/audit"
)

func TestWriteEvent_Success(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	s := audit.NewService(db)

	evt := audit.AuditEvent{EventID: uuid.New(), Action: "test.action", TenantID: uuid.New(), CreatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.WriteEvent(context.Background(), evt); err != nil {
		t.Errorf("WriteEvent failed: %v", err)
	}
}

func TestWriteEvent_Failover(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	tempDir, _ := os.MkdirTemp("", "audit_test")
	defer os.RemoveAll(tempDir)
	audit.ConfigureFailover(tempDir, 100)

	s := audit.NewService(db)
	evt := audit.AuditEvent{EventID: uuid.New(), Action: "fail.action", TenantID: uuid.New(), CreatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(sql.ErrConnDone)

	if err := s.WriteEvent(context.Background(), evt); err != nil {
		t.Errorf("WriteEvent failed on failover: %v", err)
	}

	files, _ := os.ReadDir(tempDir)
	if len(files) == 0 {
		t.Error("No spool file created")
	}
}

func TestReplay_Idempotency(t *testing.T) {
	tempDir, _ := os.MkdirTemp("", "replay_test")
	defer os.RemoveAll(tempDir)
	audit.ConfigureFailover(tempDir, 100)

	evt := audit.AuditEvent{EventID: uuid.New(), Action: "replay.action", TenantID: uuid.New()}
	audit.SpoolEvent(evt)

	db, mock, _ := sqlmock.New()
	defer db.Close()
	s := audit.NewService(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	s.ReplaySpool(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Replay didn't call DB: %s", err)
	}
}

func TestRetentionGuard(t *testing.T) {
	if err := audit.CheckRetentionPolicy(1); err == nil {
		t.Error("Allowed 1 year retention (Unsafe)")
	}
	if err := audit.CheckRetentionPolicy(7); err != nil {
		t.Error("Blocked 7 year retention (Safe)")
	}

	safeDate := audit.EnsureSafePurgeDate()
	if !safeDate.Before(time.Now()) {
		t.Error("Safe date invalid")
	}
}

func TestWriteEvent_GeneratesUUID(t *testing.T) {
	db, mock, _ := sqlmock.New()
	s := audit.NewService(db)
	evt := audit.AuditEvent{EventID: uuid.Nil, TenantID: uuid.New()}

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	s.WriteEvent(context.Background(), evt)
}

func TestRetention_1Year(t *testing.T) {
	if err := audit.CheckRetentionPolicy(1); err == nil {
		t.Error("Should fail")
	}
}

func TestRetention_6Years(t *testing.T) {
	if err := audit.CheckRetentionPolicy(6); err == nil {
		t.Error("Should fail")
	}
}

func TestRetention_8Years(t *testing.T) {
	if err := audit.CheckRetentionPolicy(8); err != nil {
		t.Error("Should pass")
	}
}

func TestFailover_Config(t *testing.T) {
	tmp := os.TempDir()
	audit.ConfigureFailover(tmp, 500)
	if audit.SpoolDir != tmp {
		t.Error("Config failed")
	}
}

func TestSpool_Full_Rotation(t *testing.T) {
	evt := audit.AuditEvent{EventID: uuid.New(), TenantID: uuid.New()}
	if err := audit.SpoolEvent(evt); err != nil {
		t.Logf("spool write error (non-fatal in this test): %v", err)
	}
}
