// Package shard spreads a collection's documents over DynamoDB partitions.
package shard

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// MaxShards is the largest supported shard count.
const MaxShards = 256

// Clamp bounds numShards to [1, MaxShards].
func Clamp(numShards int) int {
	if numShards < 1 {
		return 1
	}
	if numShards > MaxShards {
		return MaxShards
	}
	return numShards
}

// PartitionKey computes the sharded partition key for a document.
// With numShards=1, all documents go to shard "00".
// With numShards>1, documents are distributed across shards based on the id hash.
func PartitionKey(collection, id string, numShards int) string {
	numShards = Clamp(numShards)
	if numShards == 1 {
		return fmt.Sprintf("%s#00", collection)
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	shard := h.Sum32() % uint32(numShards)
	return fmt.Sprintf("%s#%02x", collection, shard)
}

// Partitions returns every partition key of a collection in shard order.
func Partitions(collection string, numShards int) []string {
	numShards = Clamp(numShards)
	pks := make([]string, numShards)
	for i := range pks {
		pks[i] = fmt.Sprintf("%s#%02x", collection, i)
	}
	return pks
}

// Collection returns the collection a partition key belongs to.
func Collection(pk string) (string, bool) {
	i := strings.LastIndexByte(pk, '#')
	if i <= 0 || len(pk)-i != 3 {
		return "", false
	}
	return pk[:i], true
}
