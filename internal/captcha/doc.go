// Package captcha defeats the portal's audio CAPTCHA. The Solver runs one
// attempt end to end (fetch clip, transcribe, submit, classify the page
// state) and the Retrier bounds the loop, obtaining a fresh challenge
// between attempts so no answer is ever replayed.
package captcha
