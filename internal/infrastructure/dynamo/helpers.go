package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/edutok-api/internal/pathstore"
)

// compositeKey builds a DynamoDB primary key with two string attributes (PK + SK).
func compositeKey(pkName, pkValue, skName, skValue string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		pkName: &types.AttributeValueMemberS{Value: pkValue},
		skName: &types.AttributeValueMemberS{Value: skValue},
	}
}

// nodeKey maps tree segments to the (parent, key) of the item holding them.
func nodeKey(segs []string) map[string]types.AttributeValue {
	parent, key := splitParent(segs)
	return compositeKey(attrParent, parent, attrKey, key)
}

// splitParent returns the partition and sort key of a node.
func splitParent(segs []string) (parent, key string) {
	if len(segs) == 1 {
		return rootParent, segs[0]
	}
	return pathstore.Join(segs[:len(segs)-1]...), segs[len(segs)-1]
}

// partition is the parent value under which the children of segs live.
func partition(segs []string) string {
	if len(segs) == 0 {
		return rootParent
	}
	return pathstore.Join(segs...)
}

// chunk splits items into batches of at most size.
func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
