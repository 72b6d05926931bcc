package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/edutok-api/internal/domain"
	"github.com/edutok-api/internal/pathstore"
	"github.com/edutok-api/internal/pkg/id"
	"github.com/jonboulle/clockwork"
)

// maxTransactItems is the DynamoDB limit on items per TransactWriteItems call.
const maxTransactItems = 100

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// node is one item of the tree table. Leaves carry the record as a JSON
// document; directory markers only exist so their parent can list them.
type node struct {
	Parent    string `dynamodbav:"parent"`
	Key       string `dynamodbav:"key"`
	Doc       string `dynamodbav:"doc,omitempty"`
	Dir       bool   `dynamodbav:"dir,omitempty"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

// Store is a pathstore.Store over a single DynamoDB table keyed by
// (parent path, child key).
//
// Updates larger than one transaction (100 items) are written in batches; if
// a batch fails, the batches already committed are reverted to the items read
// before the write. Deleting a path only removes its own item; descendants
// written under it are left in place.
type Store struct {
	api   API
	table string
	clock clockwork.Clock
	dirs  sync.Map // canonical path -> struct{}, markers known to exist
}

func NewStore(api API, table string, clock clockwork.Clock) *Store {
	return &Store{api: api, table: table, clock: clock}
}

func (s *Store) NewKey() string { return id.New() }

func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	segs, err := pathstore.Split(path)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("cannot read the root: %w", pathstore.ErrInvalidPath)
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            nodeKey(segs),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%s: %w", path, pathstore.ErrNotFound)
	}
	var n node
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if n.Dir || n.Doc == "" {
		return nil, fmt.Errorf("%s: %w", path, pathstore.ErrNotFound)
	}
	return json.RawMessage(n.Doc), nil
}

func (s *Store) Keys(ctx context.Context, path string) ([]string, error) {
	nodes, err := s.children(ctx, path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(nodes))
	for _, n := range nodes {
		keys = append(keys, n.Key)
	}
	return keys, nil
}

func (s *Store) Children(ctx context.Context, path string) ([]pathstore.Snapshot, error) {
	nodes, err := s.children(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]pathstore.Snapshot, 0, len(nodes))
	for _, n := range nodes {
		if n.Dir || n.Doc == "" {
			continue
		}
		out = append(out, pathstore.Snapshot{Key: n.Key, Value: json.RawMessage(n.Doc)})
	}
	return out, nil
}

// children queries the partition of path; results come back in key order.
func (s *Store) children(ctx context.Context, path string) ([]node, error) {
	segs, err := pathstore.Split(path)
	if err != nil {
		return nil, err
	}
	p := dynamodb.NewQueryPaginator(s.api, &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		KeyConditionExpression:   aws.String("#p = :p"),
		ExpressionAttributeNames: map[string]string{"#p": attrParent},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: partition(segs)},
		},
		ConsistentRead: aws.Bool(true),
	})
	var nodes []node
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", path, err)
		}
		var batch []node
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal children of %s: %w", path, err)
		}
		nodes = append(nodes, batch...)
	}
	return nodes, nil
}

func (s *Store) Update(ctx context.Context, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	paths, err := pathstore.ParseUpdate(updates)
	if err != nil {
		return err
	}
	values := make(map[string]any, len(updates))
	for p, v := range updates {
		values[strings.Trim(p, "/")] = v
	}
	canons := make([]string, 0, len(paths))
	for c := range paths {
		canons = append(canons, c)
	}
	sort.Strings(canons)

	now := s.clock.Now().UnixMilli()
	items := make([]types.TransactWriteItem, 0, len(canons))
	ancestors := map[string][]string{}
	var deleted []string
	for _, c := range canons {
		segs := paths[c]
		v := values[c]
		if v == nil {
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(s.table),
				Key:       nodeKey(segs),
			}})
			deleted = append(deleted, c)
			continue
		}
		doc, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("value at %q: %v: %w", c, err, domain.ErrBadRequest)
		}
		parent, key := splitParent(segs)
		item, err := attributevalue.MarshalMap(node{Parent: parent, Key: key, Doc: string(doc), UpdatedAt: now})
		if err != nil {
			return fmt.Errorf("marshal node %s: %w", c, err)
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(s.table),
			Item:      item,
		}})
		for i := 1; i < len(segs); i++ {
			ancestors[pathstore.Join(segs[:i]...)] = segs[:i]
		}
	}

	batches := chunk(items, maxTransactItems)
	var prior map[string]map[string]types.AttributeValue
	if len(batches) > 1 {
		if prior, err = s.snapshot(ctx, canons, paths); err != nil {
			return err
		}
	}

	created, err := s.ensureDirs(ctx, ancestors, now)
	if err != nil {
		return s.rollback(ctx, err, nil, created)
	}
	for i, batch := range batches {
		if _, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: batch}); err != nil {
			werr := fmt.Errorf("transact write batch %d/%d: %w", i+1, len(batches), err)
			undo := s.undoItems(canons[:i*maxTransactItems], paths, prior)
			return s.rollback(ctx, werr, undo, created)
		}
	}
	for _, c := range deleted {
		s.dirs.Delete(c)
	}
	return nil
}

// snapshot reads the current item at every path so committed batches can be
// reverted if a later batch fails.
func (s *Store) snapshot(ctx context.Context, canons []string, paths map[string][]string) (map[string]map[string]types.AttributeValue, error) {
	prior := make(map[string]map[string]types.AttributeValue, len(canons))
	for _, c := range canons {
		out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.table),
			Key:            nodeKey(paths[c]),
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("read %s before update: %w", c, err)
		}
		prior[c] = out.Item
	}
	return prior, nil
}

// undoItems restores the previous item at each committed path, or deletes
// the path if nothing was there.
func (s *Store) undoItems(committed []string, paths map[string][]string, prior map[string]map[string]types.AttributeValue) []types.TransactWriteItem {
	undo := make([]types.TransactWriteItem, 0, len(committed))
	for _, c := range committed {
		if old := prior[c]; old != nil {
			undo = append(undo, types.TransactWriteItem{Put: &types.Put{TableName: aws.String(s.table), Item: old}})
			continue
		}
		undo = append(undo, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(s.table),
			Key:       nodeKey(paths[c]),
		}})
	}
	return undo
}

// rollback reverts committed items and the directory markers this update
// created, then returns cause. A failed rollback is joined to cause.
func (s *Store) rollback(ctx context.Context, cause error, undo []types.TransactWriteItem, created map[string][]string) error {
	for c, segs := range created {
		undo = append(undo, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(s.table),
			Key:       nodeKey(segs),
		}})
		s.dirs.Delete(c)
	}
	if len(undo) == 0 {
		return cause
	}
	ctx = context.WithoutCancel(ctx)
	for _, batch := range chunk(undo, maxTransactItems) {
		if _, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: batch}); err != nil {
			slog.Error("dynamo: rollback after failed update", "table", s.table, "items", len(undo), "err", err)
			return errors.Join(cause, fmt.Errorf("rollback: %w", err))
		}
	}
	return cause
}

// ensureDirs creates the directory markers a write needs so Keys can list
// every level. Existing items are left untouched. It returns the markers it
// created, including those created before an error.
func (s *Store) ensureDirs(ctx context.Context, dirs map[string][]string, now int64) (map[string][]string, error) {
	canons := make([]string, 0, len(dirs))
	for c := range dirs {
		if _, ok := s.dirs.Load(c); !ok {
			canons = append(canons, c)
		}
	}
	sort.Strings(canons)
	created := map[string][]string{}
	for _, c := range canons {
		parent, key := splitParent(dirs[c])
		item, err := attributevalue.MarshalMap(node{Parent: parent, Key: key, Dir: true, UpdatedAt: now})
		if err != nil {
			return created, fmt.Errorf("marshal dir %s: %w", c, err)
		}
		_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(s.table),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#k)"),
			ExpressionAttributeNames: map[string]string{"#k": attrKey},
		})
		var ccf *types.ConditionalCheckFailedException
		switch {
		case err == nil:
			created[c] = dirs[c]
		case !errors.As(err, &ccf):
			return created, fmt.Errorf("create dir %s: %w", c, err)
		}
		s.dirs.Store(c, struct{}{})
	}
	return created, nil
}
