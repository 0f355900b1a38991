// Package disc talks to the optical drive: it reads the table of contents to
// learn how many audio tracks the inserted CD has, reports the drive state
// through the CDROM_DRIVE_STATUS ioctl, and ejects discs.
package disc
