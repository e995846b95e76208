package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"reports/internal/domain"
	"reports/internal/schema"
)

const reportsCollection = "reports"

// reportDoc is the stored shape; the path is the document _id.
type reportDoc struct {
	Path      string    `bson:"_id"`
	Title     string    `bson:"title"`
	Version   int       `bson:"version"`
	Layout    string    `bson:"layout,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoReportStore keeps reports in the "reports" collection of a database.
type MongoReportStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *log.Logger
}

var _ domain.ReportStore = (*MongoReportStore)(nil)

// NewMongoReportStore connects to uri and verifies the server with a ping.
func NewMongoReportStore(ctx context.Context, uri, database string, logger *log.Logger) (*MongoReportStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("mongo")

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("report store connected", "database", database)
	return &MongoReportStore{
		client: client,
		coll:   client.Database(database).Collection(reportsCollection),
		logger: logger,
	}, nil
}

func (s *MongoReportStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoReportStore) SaveReport(ctx context.Context, path string, doc domain.Document) error {
	data, err := schema.EncodeEnvelope(doc)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", path, err)
	}
	rec := reportDoc{
		Path:      path,
		Title:     doc.Title,
		Version:   schema.CurrentVersion,
		Layout:    string(data),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": path}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func (s *MongoReportStore) LoadReport(ctx context.Context, path string) (*domain.Report, error) {
	var rec reportDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", domain.ErrReportNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", path, err)
	}

	doc, err := schema.DecodeEnvelope([]byte(rec.Layout))
	if err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &domain.Report{Path: path, Title: doc.Title, Layout: doc, UpdatedAt: rec.UpdatedAt}, nil
}

func (s *MongoReportStore) ListReports(ctx context.Context) ([]domain.ReportSummary, error) {
	opts := options.Find().
		SetProjection(bson.M{"layout": 0}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []reportDoc
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	out := make([]domain.ReportSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.ReportSummary{Path: r.Path, Title: r.Title, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

func (s *MongoReportStore) DeleteReport(ctx context.Context, path string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": path}); err != nil {
		return fmt.Errorf("delete report %s: %w", path, err)
	}
	return nil
}
