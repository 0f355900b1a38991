// Package extract runs the audio extractor (icedax) for one playback
// session. Raw PCM goes straight to the relay's audio socket; the diagnostic
// stream is handed back line by line for metadata parsing.
package extract
