// Command scrubber batch-redacts PII from conversation transcripts using the
// Azure Language conversational PII service.
package main
