package service_test

import (
	"testing"

	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/repository"
	"fundecodes-backend/internal/service"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// A pooled second connection would see its own empty :memory: database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.Program{},
		&model.PurchaseRequest{},
		&model.RequestHistory{},
		&model.FinalInvoice{},
		&model.AuditLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

// testEnv bundles the wired services plus the fixture rows tests act on.
type testEnv struct {
	db       *gorm.DB
	requests service.RequestService
	invoices service.InvoiceService

	program   model.Program
	requester model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)

	env := &testEnv{
		db: db,
		program: model.Program{
			Name:   "Conservación Marina",
			Active: true,
		},
		requester: model.User{
			Username: "maria",
			Email:    "maria@fundecodes.org",
			Password: "hashed",
			Role:     model.RoleRequester,
		},
	}
	if err := db.Create(&env.program).Error; err != nil {
		t.Fatalf("seed program: %v", err)
	}
	if err := db.Create(&env.requester).Error; err != nil {
		t.Fatalf("seed requester: %v", err)
	}

	txm := repository.NewTransactionManager(db)
	requestRepo := repository.NewRequestRepository(db)
	programRepo := repository.NewProgramRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	env.requests = service.NewRequestService(requestRepo, programRepo, auditRepo, txm, nil)
	env.invoices = service.NewInvoiceService(invoiceRepo, requestRepo, auditRepo, txm, nil)

	return env
}

// createRequest is the fixture shortcut used by most tests.
func (env *testEnv) createRequest(t *testing.T, amount string) service.RequestResponse {
	t.Helper()

	req, err := env.requests.CreateRequest(t.Context(), env.requester.ID.String(), service.CreateRequestDTO{
		Amount:    amount,
		Concept:   "Boat fuel",
		ProgramID: env.program.ID.String(),
		Reason:    "Field monitoring trip",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

// transition applies one lifecycle action as the role the edge expects.
func (env *testEnv) transition(t *testing.T, id, action, role, note string) service.RequestResponse {
	t.Helper()

	actor := uuid.New().String()
	res, err := env.requests.Transition(t.Context(), id, action, role, actor, note)
	if err != nil {
		t.Fatalf("Transition(%s, %s): %v", id, action, err)
	}
	return res
}
