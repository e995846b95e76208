package app

import (
	"github.com/samber/lo"

	"reports/internal/dbclient"
	"reports/internal/domain"
	"reports/internal/etl"
	"reports/internal/service"
)

// ── Data connections ───────────────────────────────────────

func (a *App) ListDataConnections() ([]DataConnView, error) {
	conns, err := a.data.ListConnections()
	if err != nil {
		return nil, err
	}
	return lo.Map(conns, func(c domain.DataConnection, _ int) DataConnView {
		return connView(c)
	}), nil
}

func (a *App) CreateDataConnection(input CreateDataConnInput) (*DataConnView, error) {
	c, err := a.data.CreateConnection(service.CreateConnectionInput{
		Name:      input.Name,
		Driver:    domain.SourceDriver(input.Driver),
		Host:      input.Host,
		Port:      input.Port,
		Database:  input.Database,
		Username:  input.Username,
		Password:  input.Password,
		SSLMode:   input.SSLMode,
		ExtraJSON: input.ExtraJSON,
	})
	if err != nil {
		return nil, err
	}
	v := connView(*c)
	return &v, nil
}

// ListFeedSources describes the file and HTTP feed drivers and their
// connection options.
func (a *App) ListFeedSources() []etl.SourceSpec {
	return etl.ListSources()
}

func (a *App) DeleteDataConnection(id string) error {
	return a.data.DeleteConnection(id)
}

func (a *App) TestDataConnection(id string) error {
	return a.data.TestConnection(a.ctx, id)
}

func (a *App) DataConnectionSchema(id string) (*dbclient.SchemaInfo, error) {
	return a.data.Schema(a.ctx, id)
}

// ── Data views ─────────────────────────────────────────────

// RefreshDataView re-runs the query behind one data view.
func (a *App) RefreshDataView(nodeID string) (*dbclient.ResultSet, error) {
	return a.data.Refresh(a.ctx, nodeID)
}

// RefreshAllDataViews re-runs every bound data view and returns how many
// were updated.
func (a *App) RefreshAllDataViews() (int, error) {
	return a.data.RefreshAll(a.ctx)
}

// ── Window ─────────────────────────────────────────────────

func (a *App) SaveWindowSize(width, height int) error {
	return a.settings.SaveWindowSize(width, height)
}

func connView(c domain.DataConnection) DataConnView {
	return DataConnView{
		ID:       c.ID,
		Name:     c.Name,
		Driver:   string(c.Driver),
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		Username: c.Username,
		SSLMode:  c.SSLMode,
	}
}
