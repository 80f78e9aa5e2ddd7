// Package parse turns raw model text into typed structured results.
// Models often wrap JSON in prose or markdown fences, drop list fields or
// emit slightly broken JSON, so decoding is layered: strict decoding, then
// the substring between the first '{' and the last '}', then automatic JSON
// repair (kaptinlin/jsonrepair), then schema-wrapper unwrapping. Any layer
// past the first reports a [RecoveryWarning]. When every layer fails, [Decode]
// builds a degraded result through a caller-supplied fallback.
//
// Decoded values never contain nil slices or maps: [FillEmpty] replaces them
// with empty containers so serialized output shows [] and {} rather than null.
package parse
