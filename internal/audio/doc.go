// Package audio owns spoken playback of card text. Session is the
// at-most-one-at-a-time playback state machine; Spool and Handle manage the
// temporary file a clip is played from; Player runs a system audio player.
// The providers synthesize speech locally for the direct backend, with the
// OpenAI TTS API as the primary engine and espeak-ng as the fallback.
package audio
