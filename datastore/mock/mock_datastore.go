/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Backend for testing
package mock

import (
	"context"
	"encoding/base64"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
)

// Operation names used for call counting and failure injection.
const (
	OpGetOrCreateDatabase   = "GetOrCreateDatabase"
	OpDeleteDatabase        = "DeleteDatabase"
	OpGetOrCreateCollection = "GetOrCreateCollection"
	OpDeleteCollection      = "DeleteCollection"
	OpCreate                = "CreateDocument"
	OpRead                  = "ReadDocument"
	OpReplace               = "ReplaceDocument"
	OpDelete                = "DeleteDocument"
	OpQuery                 = "QueryDocuments"
	OpPing                  = "Ping"
)

type collection struct {
	descriptor storagemodels.CollectionDescriptor
	docs       map[string]storagemodels.Document
}

type database struct {
	descriptor  storagemodels.DatabaseDescriptor
	collections map[string]*collection
}

// Backend is an in-memory datastore.Backend
type Backend struct {
	mu        sync.RWMutex
	databases map[string]*database
	calls     map[string]int
	failures  map[string][]error

	createError  error
	readError    error
	replaceError error
	deleteError  error
	queryError   error
	closed       bool
	now          func() time.Time
}

// New creates a new empty Backend
func New() *Backend {
	return &Backend{
		databases: make(map[string]*database),
		calls:     make(map[string]int),
		failures:  make(map[string][]error),
		now:       time.Now,
	}
}

// WithCreateError makes CreateDocument operations return an error
func (m *Backend) WithCreateError(err error) *Backend {
	m.createError = err
	return m
}

// WithReadError makes ReadDocument operations return an error
func (m *Backend) WithReadError(err error) *Backend {
	m.readError = err
	return m
}

// WithReplaceError makes ReplaceDocument operations return an error
func (m *Backend) WithReplaceError(err error) *Backend {
	m.replaceError = err
	return m
}

// WithDeleteError makes DeleteDocument operations return an error
func (m *Backend) WithDeleteError(err error) *Backend {
	m.deleteError = err
	return m
}

// WithQueryError makes QueryDocuments operations return an error
func (m *Backend) WithQueryError(err error) *Backend {
	m.queryError = err
	return m
}

// FailNext queues err to be returned by the next n calls of op. Queued failures
// are consumed before the persistent With*Error settings are consulted.
func (m *Backend) FailNext(op string, n int, err error) *Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failures[op] = append(m.failures[op], err)
	}
	return m
}

// Calls returns how many times op has been invoked
func (m *Backend) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// TotalCalls returns the number of calls across every operation
func (m *Backend) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// begin records the call and returns any injected failure. Callers hold m.mu.
func (m *Backend) begin(op string, persistent error) error {
	m.calls[op]++
	if queue := m.failures[op]; len(queue) > 0 {
		m.failures[op] = queue[1:]
		return queue[0]
	}
	if m.closed {
		return errors.NewTransportFailureError(op, context.Canceled)
	}
	return persistent
}

func (m *Backend) Kind() string { return "memory" }

func (m *Backend) GetOrCreateDatabase(ctx context.Context, name string) (*storagemodels.DatabaseDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGetOrCreateDatabase, nil); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTransportFailureError(OpGetOrCreateDatabase, err)
	}

	db := m.database(name)
	d := db.descriptor
	return &d, nil
}

func (m *Backend) database(name string) *database {
	db, ok := m.databases[name]
	if !ok {
		db = &database{
			descriptor: storagemodels.DatabaseDescriptor{
				ID:        name,
				SelfLink:  storagemodels.DatabaseAddress(name),
				CreatedAt: m.now(),
			},
			collections: make(map[string]*collection),
		}
		m.databases[name] = db
	}
	return db
}

func (m *Backend) DeleteDatabase(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDeleteDatabase, nil); err != nil {
		return err
	}
	if _, ok := m.databases[name]; !ok {
		return errors.NewNotFoundError("database", name)
	}
	delete(m.databases, name)
	return nil
}

func (m *Backend) GetOrCreateCollection(ctx context.Context, dbName, collName string) (*storagemodels.CollectionDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGetOrCreateCollection, nil); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTransportFailureError(OpGetOrCreateCollection, err)
	}
	ref, err := storagemodels.NewCollectionRef(dbName, collName)
	if err != nil {
		return nil, err
	}

	db := m.database(dbName)
	coll, ok := db.collections[collName]
	if !ok {
		coll = &collection{
			descriptor: storagemodels.CollectionDescriptor{
				ID:         collName,
				DatabaseID: dbName,
				SelfLink:   ref.Address(),
				CreatedAt:  m.now(),
			},
			docs: make(map[string]storagemodels.Document),
		}
		db.collections[collName] = coll
	}
	d := coll.descriptor
	return &d, nil
}

func (m *Backend) DeleteCollection(ctx context.Context, dbName, collName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDeleteCollection, nil); err != nil {
		return err
	}
	db, ok := m.databases[dbName]
	if !ok {
		return errors.NewNotFoundError("database", dbName)
	}
	if _, ok := db.collections[collName]; !ok {
		return errors.NewNotFoundError("collection", storagemodels.DatabaseAddress(dbName)+"/collections/"+collName)
	}
	delete(db.collections, collName)
	return nil
}

// lookup returns the collection behind ref. Callers hold m.mu.
func (m *Backend) lookup(ref storagemodels.CollectionRef) (*collection, error) {
	db, ok := m.databases[ref.Database]
	if !ok {
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	}
	coll, ok := db.collections[ref.Collection]
	if !ok {
		return nil, errors.NewNotFoundError("collection", ref.Address())
	}
	return coll, nil
}

func (m *Backend) CreateDocument(ctx context.Context, ref storagemodels.CollectionRef, doc storagemodels.Document) (storagemodels.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCreate, m.createError); err != nil {
		return nil, err
	}
	coll, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}

	stored := storagemodels.CloneDocument(doc)
	if stored == nil {
		stored = storagemodels.Document{}
	}
	id, ok := storagemodels.StringAttr(stored, storagemodels.AttrID)
	if !ok || id == "" {
		id = uuid.NewString()
	}
	docRef, err := ref.Document(id)
	if err != nil {
		return nil, err
	}
	if _, exists := coll.docs[id]; exists {
		return nil, errors.NewAlreadyExistsError("document", docRef.Address())
	}

	m.stamp(stored, docRef)
	coll.docs[id] = stored
	return storagemodels.CloneDocument(stored), nil
}

func (m *Backend) ReadDocument(ctx context.Context, ref storagemodels.DocumentRef) (storagemodels.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpRead, m.readError); err != nil {
		return nil, err
	}
	coll, err := m.lookup(ref.CollectionRef)
	if err != nil {
		return nil, err
	}
	doc, ok := coll.docs[ref.ID]
	if !ok {
		return nil, errors.NewNotFoundError("document", ref.Address())
	}
	return storagemodels.CloneDocument(doc), nil
}

func (m *Backend) ReplaceDocument(ctx context.Context, ref storagemodels.DocumentRef, doc storagemodels.Document) (storagemodels.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpReplace, m.replaceError); err != nil {
		return nil, err
	}
	coll, err := m.lookup(ref.CollectionRef)
	if err != nil {
		return nil, err
	}
	if _, ok := coll.docs[ref.ID]; !ok {
		return nil, errors.NewNotFoundError("document", ref.Address())
	}

	stored := storagemodels.CloneDocument(doc)
	if stored == nil {
		stored = storagemodels.Document{}
	}
	m.stamp(stored, ref)
	coll.docs[ref.ID] = stored
	return storagemodels.CloneDocument(stored), nil
}

func (m *Backend) DeleteDocument(ctx context.Context, ref storagemodels.DocumentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDelete, m.deleteError); err != nil {
		return err
	}
	coll, err := m.lookup(ref.CollectionRef)
	if err != nil {
		return err
	}
	if _, ok := coll.docs[ref.ID]; !ok {
		return errors.NewNotFoundError("document", ref.Address())
	}
	delete(coll.docs, ref.ID)
	return nil
}

// QueryDocuments scans the collection in id order. The continuation token is the
// last returned id, so documents added behind the cursor are never repeated.
func (m *Backend) QueryDocuments(ctx context.Context, ref storagemodels.CollectionRef, params *storagemodels.QueryParams) (*storagemodels.Page, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Raw != nil {
		return nil, errors.NewValidationError("query", "raw queries are not supported by the memory backend")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpQuery, m.queryError); err != nil {
		return nil, err
	}
	coll, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	after, err := DecodeToken(params.ContinuationToken)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(coll.docs))
	for id := range coll.docs {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	limit := int(params.PageSize)
	if limit <= 0 {
		limit = len(ids)
	}

	page := &storagemodels.Page{}
	for _, id := range ids {
		doc := coll.docs[id]
		ok, err := query.Match(params.Filter, doc)
		if err != nil {
			return nil, errors.NewValidationError("filter", err.Error())
		}
		if !ok {
			continue
		}
		if len(page.Documents) == limit {
			last, _ := storagemodels.StringAttr(page.Documents[limit-1], storagemodels.AttrID)
			page.ContinuationToken = EncodeToken(last)
			break
		}
		page.Documents = append(page.Documents, storagemodels.CloneDocument(doc))
	}
	return page, nil
}

func (m *Backend) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin(OpPing, nil)
}

// Close marks the backend closed; later calls fail as transport failures.
func (m *Backend) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *Backend) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Backend) stamp(doc storagemodels.Document, ref storagemodels.DocumentRef) {
	doc[storagemodels.AttrID] = &types.AttributeValueMemberS{Value: ref.ID}
	doc[storagemodels.AttrSelf] = &types.AttributeValueMemberS{Value: ref.Address()}
	doc[storagemodels.AttrETag] = &types.AttributeValueMemberS{Value: uuid.NewString()}
	doc[storagemodels.AttrTS] = &types.AttributeValueMemberN{Value: strconv.FormatInt(m.now().Unix(), 10)}
}

// Helper methods for testing

// SetData replaces the documents of a collection, creating it when needed
func (m *Backend) SetData(dbName, collName string, docs map[string]storagemodels.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	db := m.database(dbName)
	coll := &collection{
		descriptor: storagemodels.CollectionDescriptor{
			ID:         collName,
			DatabaseID: dbName,
			SelfLink:   storagemodels.DatabaseAddress(dbName) + "/collections/" + collName,
			CreatedAt:  m.now(),
		},
		docs: make(map[string]storagemodels.Document, len(docs)),
	}
	for id, doc := range docs {
		coll.docs[id] = storagemodels.CloneDocument(doc)
	}
	db.collections[collName] = coll
}

// GetData returns a copy of the documents of a collection
func (m *Backend) GetData(dbName, collName string) map[string]storagemodels.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	db, ok := m.databases[dbName]
	if !ok {
		return nil
	}
	coll, ok := db.collections[collName]
	if !ok {
		return nil
	}
	result := make(map[string]storagemodels.Document, len(coll.docs))
	for k, v := range coll.docs {
		result[k] = storagemodels.CloneDocument(v)
	}
	return result
}

// Count returns the number of documents stored in a collection
func (m *Backend) Count(dbName, collName string) int {
	return len(m.GetData(dbName, collName))
}

// Clear removes all databases, counters and injected failures
func (m *Backend) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.databases = make(map[string]*database)
	m.calls = make(map[string]int)
	m.failures = make(map[string][]error)
}

// EncodeToken makes an id cursor opaque.
func EncodeToken(lastID string) string {
	if lastID == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(lastID))
}

// DecodeToken reverses EncodeToken. An empty token starts from the beginning.
func DecodeToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) == 0 {
		return "", errors.NewValidationError("continuationToken", "malformed continuation token")
	}
	return string(raw), nil
}
