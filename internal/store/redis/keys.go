package redis

const (
	// KeyPrefixBookmark is the prefix for bookmark rows
	KeyPrefixBookmark = "marks:bookmark:"
	// KeyPrefixUser is the prefix for per-user indexes
	KeyPrefixUser = "marks:user:"
	// KeyPrefixSession is the prefix for signed-in sessions, keyed by client id
	KeyPrefixSession = "marks:session:"
	// KeyPrefixState is the prefix for pending OAuth states
	KeyPrefixState = "marks:oauth:state:"
	// ChannelPrefixSession is the pub/sub channel prefix for session changes
	ChannelPrefixSession = "marks:events:session:"
)

// BookmarkKey returns the Redis key for a bookmark row
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// UserBookmarksKey returns the sorted set of a user's bookmark ids, scored by creation time
func UserBookmarksKey(userID string) string {
	return KeyPrefixUser + userID + ":bookmarks"
}

// SessionKey returns the Redis key holding a client's session
func SessionKey(clientID string) string {
	return KeyPrefixSession + clientID
}

// StateKey returns the Redis key of a pending OAuth state
func StateKey(state string) string {
	return KeyPrefixState + state
}

// SessionChannel returns the pub/sub channel for a client's session changes
func SessionChannel(clientID string) string {
	return ChannelPrefixSession + clientID
}

// ClientFromChannel extracts the client id from a session channel name.
func ClientFromChannel(channel string) (string, bool) {
	if len(channel) <= len(ChannelPrefixSession) || channel[:len(ChannelPrefixSession)] != ChannelPrefixSession {
		return "", false
	}
	return channel[len(ChannelPrefixSession):], true
}
