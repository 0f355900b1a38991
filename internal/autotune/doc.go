// Package autotune selects the cdplayer stream on an output zone by walking
// the music system's browse catalog, one level per path element.
package autotune
