// Package tracker keeps the now-playing track in step with the audio by
// timing track boundaries from the durations in the disc metadata.
package tracker
