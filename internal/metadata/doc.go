// Package metadata models the disc being played (album, artist, tracks) and
// parses it out of the extractor's diagnostic stream.
package metadata
