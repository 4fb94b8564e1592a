// Package chatlog persists chat history as an ordered append log. The same
// log implementation serves both the contract-negotiation chat (horizontally
// partitioned across a fixed number of physical tables) and the general chat
// rooms (a single table); the difference is the partitioning strategy.
package chatlog

import "fmt"

// Partitioner routes a chat id to exactly one physical table. A chat's id
// never changes, so every read and write for it lands on the same partition
// and no cross-partition fan-out is ever needed.
type Partitioner interface {
	// Table returns the physical table for the given chat id.
	Table(chatID int64) string

	// Tables enumerates every physical table the strategy can route to,
	// for schema creation.
	Tables() []string
}

type hashPartitioner struct {
	base   string
	shards int64
}

// Hash returns a partitioner that spreads chats across shard tables named
// <base>_0 .. <base>_<n-1> by chat id modulo n. The shard count is fixed at
// deploy time; changing it would reroute existing chats.
func Hash(base string, shards int) Partitioner {
	if shards < 1 {
		shards = 1
	}
	return hashPartitioner{base: base, shards: int64(shards)}
}

func (p hashPartitioner) Table(chatID int64) string {
	shard := chatID % p.shards
	if shard < 0 {
		shard += p.shards
	}
	return fmt.Sprintf("%s_%d", p.base, shard)
}

func (p hashPartitioner) Tables() []string {
	tables := make([]string, 0, p.shards)
	for i := int64(0); i < p.shards; i++ {
		tables = append(tables, fmt.Sprintf("%s_%d", p.base, i))
	}
	return tables
}

type constantPartitioner struct {
	table string
}

// Constant returns a partitioner that routes every chat to one table. Used
// for the unsharded general chat log.
func Constant(table string) Partitioner {
	return constantPartitioner{table: table}
}

func (p constantPartitioner) Table(int64) string {
	return p.table
}

func (p constantPartitioner) Tables() []string {
	return []string{p.table}
}
