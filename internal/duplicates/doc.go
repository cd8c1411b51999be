// Package duplicates finds groups of tracks that appear to be the same
// recording and picks a keeper for each group. Detection is observational:
// deciding what happens to the losers belongs to the caller.
package duplicates
