package internal

// Version is the current studycards release.
const Version = "0.4.0"
