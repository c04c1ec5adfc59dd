// Package store holds the shared counter state behind the stateful tools.
//
// Counter is implemented by RedisCounter, which uses INCRBY so that every
// replica of the server sees one value, and by MemoryCounter for tests and
// single-process runs. Broadcaster fans counter updates out to resource
// subscribers without ever blocking the writer.
package store
