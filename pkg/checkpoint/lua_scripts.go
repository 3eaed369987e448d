// pkg/checkpoint/lua_scripts.go

package checkpoint

// KEYS: checkpoint, index. ARGV: body, score, name.
const scriptSave = `
redis.call('SET', KEYS[1], ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
return redis.call('ZCARD', KEYS[2])
`

// KEYS: checkpoint, index. ARGV: name.
const scriptDelete = `
local n = redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return n
`
