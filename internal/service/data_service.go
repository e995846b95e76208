package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"reports/internal/dbclient"
	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/etl"
	_ "reports/internal/etl/sources"
	"reports/internal/secret"
)

// ─────────────────────────────────────────────────────────────
// Data Service: data connections and data view refresh
// ─────────────────────────────────────────────────────────────

var (
	// ErrNotDataView is returned when refreshing a node that is not a data view.
	ErrNotDataView = errors.New("node is not a data view")
	// ErrNoSource is returned when a data view has no source to refresh from.
	ErrNoSource = errors.New("data view has no source")
	// ErrRefreshRunning is returned while the same data view is refreshing.
	ErrRefreshRunning = errors.New("refresh already running")
)

// ConnectFunc opens a Connector; OpenConnector in production.
type ConnectFunc func(conn *domain.DataConnection, password string) (dbclient.Connector, error)

// OpenConnector opens file and HTTP feeds through etl and databases
// through dbclient.
func OpenConnector(conn *domain.DataConnection, password string) (dbclient.Connector, error) {
	if etl.Handles(conn.Driver) {
		c, err := etl.NewConnector(conn, password)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return dbclient.NewConnector(conn, password)
}

// DataService manages data connections and fills data views from them.
type DataService struct {
	conns   domain.DataConnectionStore
	secrets secret.SecretStore
	editor  *EditorService
	connect ConnectFunc
	running runningJobsGuard
	emitter EventEmitter
	logger  *log.Logger
}

func NewDataService(conns domain.DataConnectionStore, secrets secret.SecretStore, editor *EditorService, emitter EventEmitter, logger *log.Logger) *DataService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DataService{
		conns:   conns,
		secrets: secrets,
		editor:  editor,
		connect: OpenConnector,
		emitter: emitter,
		logger:  logger.WithPrefix("data"),
	}
}

// SetConnectFunc replaces how connectors are opened.
func (s *DataService) SetConnectFunc(fn ConnectFunc) {
	s.connect = fn
}

// ── Connection CRUD ────────────────────────────────────────

type CreateConnectionInput struct {
	Name      string              `json:"name"`
	Driver    domain.SourceDriver `json:"driver"`
	Host      string              `json:"host"`
	Port      int                 `json:"port"`
	Database  string              `json:"database"`
	Username  string              `json:"username"`
	Password  string              `json:"password"`
	SSLMode   string              `json:"sslMode"`
	ExtraJSON string              `json:"extraJson"`
}

// CreateConnection stores the connection and its password in the secret store.
func (s *DataService) CreateConnection(input CreateConnectionInput) (*domain.DataConnection, error) {
	c := &domain.DataConnection{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Driver:    input.Driver,
		Host:      input.Host,
		Port:      input.Port,
		Database:  input.Database,
		Username:  input.Username,
		SSLMode:   input.SSLMode,
		ExtraJSON: input.ExtraJSON,
	}
	if err := s.conns.CreateConnection(c); err != nil {
		return nil, err
	}
	if input.Password != "" {
		if err := s.secrets.Set(c.ID, []byte(input.Password)); err != nil {
			s.conns.DeleteConnection(c.ID)
			return nil, fmt.Errorf("store password: %w", err)
		}
	}
	return c, nil
}

func (s *DataService) ListConnections() ([]domain.DataConnection, error) {
	return s.conns.ListConnections()
}

// DeleteConnection removes the connection and its password.
func (s *DataService) DeleteConnection(id string) error {
	if err := s.secrets.Delete(id); err != nil {
		s.logger.Warn("password not removed", "connection", id, "err", err)
	}
	return s.conns.DeleteConnection(id)
}

// TestConnection opens the connection and pings it.
func (s *DataService) TestConnection(ctx context.Context, id string) error {
	connector, err := s.open(id)
	if err != nil {
		return err
	}
	defer connector.Close()
	return connector.TestConnection(ctx)
}

// Schema lists the tables of a connection.
func (s *DataService) Schema(ctx context.Context, id string) (*dbclient.SchemaInfo, error) {
	connector, err := s.open(id)
	if err != nil {
		return nil, err
	}
	defer connector.Close()
	return connector.Introspect(ctx)
}

func (s *DataService) open(id string) (dbclient.Connector, error) {
	conn, err := s.conns.GetConnection(id)
	if err != nil {
		return nil, err
	}
	password, err := s.secrets.Get(id)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return s.connect(conn, string(password))
}

// ── Refresh ────────────────────────────────────────────────

// Refresh runs the source query of the data view nodeID and replaces its
// records. Columns are filled in from the result when the view has none.
func (s *DataService) Refresh(ctx context.Context, nodeID string) (*dbclient.ResultSet, error) {
	n, ok := doctree.Find(s.editor.Document(), nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", doctree.ErrNodeNotFound, nodeID)
	}
	dv, ok := n.Content.(domain.DataView)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotDataView, nodeID, n.Kind())
	}
	if dv.Source == nil || dv.Source.ConnectionID == "" || dv.Source.Query == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, nodeID)
	}

	if !s.running.TryLock(nodeID) {
		return nil, fmt.Errorf("%w: %s", ErrRefreshRunning, nodeID)
	}
	defer s.running.Unlock(nodeID)

	connector, err := s.open(dv.Source.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", nodeID, err)
	}
	defer connector.Close()

	rs, err := connector.Fetch(ctx, dv.Source.Query, dv.Source.Limit)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", nodeID, err)
	}

	// re-read: the document may have changed while the query ran
	n, ok = doctree.Find(s.editor.Document(), nodeID)
	if !ok {
		return nil, fmt.Errorf("refresh %s: %w", nodeID, doctree.ErrNodeNotFound)
	}
	current, ok := n.Content.(domain.DataView)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDataView, nodeID)
	}
	current.Data = rs.Records
	if len(current.Config.Columns) == 0 {
		for _, col := range rs.Columns {
			current.Config.Columns = append(current.Config.Columns, domain.ColumnDef{Key: col, Label: col})
		}
	}
	if err := s.editor.Update(ctx, nodeID, doctree.Patch{Content: current}); err != nil {
		return nil, fmt.Errorf("refresh %s: %w", nodeID, err)
	}

	s.logger.Info("data view refreshed", "node", nodeID, "records", len(rs.Records), "truncated", rs.Truncated)
	s.emitter.Emit(ctx, EventDataRefreshed, nodeID)
	return rs, nil
}

// RefreshAll refreshes every data view that has a source and returns how
// many succeeded. Failures are logged and the first one is returned.
func (s *DataService) RefreshAll(ctx context.Context) (int, error) {
	var ids []string
	doctree.Walk(s.editor.Document(), func(n domain.Node, _ doctree.Location) bool {
		if dv, ok := n.Content.(domain.DataView); ok && dv.Source != nil {
			ids = append(ids, n.ID)
		}
		return true
	})

	var (
		done     int
		firstErr error
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := s.Refresh(ctx, id); err != nil {
			s.logger.Error("refresh failed", "node", id, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
	}
	return done, firstErr
}

// WaitRunning blocks until running refreshes finish or ctx is cancelled.
func (s *DataService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}
