// Command cdplayer is the command-line client for the cdplayerd daemon. It
// starts and stops playback, reports session and dependency status, and
// manages the configuration file.
package main
