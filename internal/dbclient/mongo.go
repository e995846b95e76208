package dbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"reports/internal/domain"
)

// mongoConnector implements Connector for MongoDB.
type mongoConnector struct {
	client *mongo.Client
	dbName string
	logger *log.Logger
}

// mongoQuery is the JSON a data view source holds for MongoDB.
type mongoQuery struct {
	Collection string         `json:"collection"`
	Operation  string         `json:"operation,omitempty"` // find (default) or aggregate
	Filter     map[string]any `json:"filter,omitempty"`
	Projection map[string]any `json:"projection,omitempty"`
	Sort       map[string]any `json:"sort,omitempty"`
	Pipeline   []any          `json:"pipeline,omitempty"`
}

// buildMongoURI returns the connection URI and database name for conn.
// A Host that is already a mongodb:// or mongodb+srv:// URI is used as is,
// with <password> placeholders filled in.
func buildMongoURI(conn *domain.DataConnection, password string) (uri, dbName string) {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri = conn.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
	} else {
		port := conn.Port
		if port == 0 {
			port = 27017
		}
		if conn.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, password, conn.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
		}

		// authSource, replicaSet, etc.
		if conn.ExtraJSON != "" && conn.ExtraJSON != "{}" {
			var extras map[string]string
			if json.Unmarshal([]byte(conn.ExtraJSON), &extras) == nil && len(extras) > 0 {
				keys := make([]string, 0, len(extras))
				for k := range extras {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				params := make([]string, 0, len(keys))
				for _, k := range keys {
					params = append(params, k+"="+extras[k])
				}
				uri += "/?" + strings.Join(params, "&")
			}
		}
	}

	dbName = conn.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	if dbName == "" {
		dbName = "test"
	}
	return uri, dbName
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	if at := strings.Index(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return ""
	}
	path := rest[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	return path
}

func newMongoConnector(conn *domain.DataConnection, password string) (*mongoConnector, error) {
	uri, dbName := buildMongoURI(conn, password)
	logger := log.WithPrefix("mongo")

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	logger.Debug("connecting", "uri", logURI, "database", dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoConnector{client: client, dbName: dbName, logger: logger}, nil
}

// unmarshalEJSON converts Extended JSON values ($oid, $date, ...) in field
// to BSON types.
func unmarshalEJSON(field map[string]any) map[string]any {
	if field == nil {
		return nil
	}
	raw, err := json.Marshal(field)
	if err != nil {
		return field
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return field
	}
	result := make(map[string]any, len(doc))
	for _, elem := range doc {
		result[elem.Key] = elem.Value
	}
	return result
}

func parseMongoQuery(query string) (mongoQuery, error) {
	var mq mongoQuery
	if err := json.Unmarshal([]byte(query), &mq); err != nil {
		return mq, fmt.Errorf("invalid query JSON: %w", err)
	}
	if mq.Collection == "" {
		return mq, fmt.Errorf("query must specify 'collection'")
	}
	switch mq.Operation {
	case "", "find", "aggregate":
	default:
		return mq, fmt.Errorf("%w: %s", ErrWriteQuery, mq.Operation)
	}
	mq.Filter = unmarshalEJSON(mq.Filter)
	mq.Projection = unmarshalEJSON(mq.Projection)
	mq.Sort = unmarshalEJSON(mq.Sort)
	return mq, nil
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) Fetch(ctx context.Context, query string, limit int) (*ResultSet, error) {
	mq, err := parseMongoQuery(query)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	coll := m.client.Database(m.dbName).Collection(mq.Collection)

	var cursor *mongo.Cursor
	if mq.Operation == "aggregate" {
		cursor, err = coll.Aggregate(ctx, mq.Pipeline)
	} else {
		filter := bson.M{}
		for k, v := range mq.Filter {
			filter[k] = v
		}
		// one extra document tells us whether the result was cut
		opts := options.Find().SetLimit(int64(limit + 1))
		if mq.Projection != nil {
			opts.SetProjection(mq.Projection)
		}
		if mq.Sort != nil {
			opts.SetSort(mq.Sort)
		}
		cursor, err = coll.Find(ctx, filter, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", mq.Operation, mq.Collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		docs = append(docs, doc)
		if len(docs) > limit {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	rs := documentsToResultSet(docs, limit)
	m.logger.Debug("fetched", "collection", mq.Collection, "records", len(rs.Records), "truncated", rs.Truncated)
	return rs, nil
}

// documentsToResultSet flattens docs into records. Columns are the union of
// top-level keys, _id first then alphabetical.
func documentsToResultSet(docs []bson.D, limit int) *ResultSet {
	rs := &ResultSet{Records: []domain.Record{}}
	if len(docs) > limit {
		docs = docs[:limit]
		rs.Truncated = true
	}

	seen := map[string]bool{}
	for _, doc := range docs {
		rec := make(domain.Record, len(doc))
		for _, elem := range doc {
			if !seen[elem.Key] {
				seen[elem.Key] = true
				rs.Columns = append(rs.Columns, elem.Key)
			}
			rec[elem.Key] = bsonValue(elem.Value)
		}
		rs.Records = append(rs.Records, rec)
	}
	sort.SliceStable(rs.Columns, func(i, j int) bool {
		if rs.Columns[i] == "_id" {
			return true
		}
		if rs.Columns[j] == "_id" {
			return false
		}
		return rs.Columns[i] < rs.Columns[j]
	})
	return rs
}

func bsonValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return val
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (m *mongoConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db := m.client.Database(m.dbName)

	collections, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(collections)

	schema := &SchemaInfo{}
	for _, name := range collections {
		// Sample one document for field names
		var doc bson.D
		err := db.Collection(name).FindOne(ctx, bson.M{}).Decode(&doc)
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: name})
			continue
		}
		cols := make([]ColumnInfo, 0, len(doc))
		for _, elem := range doc {
			cols = append(cols, ColumnInfo{Name: elem.Key, Type: fmt.Sprintf("%T", elem.Value)})
		}
		schema.Tables = append(schema.Tables, TableInfo{Name: name, Columns: cols})
	}
	return schema, nil
}

func (m *mongoConnector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
