// Package utils provides shared low-level helpers used by the providers and
// programs: synchronous HTTP helpers for JSON, raw and multipart exchanges
// with provider APIs ([DoPostSync], [DoPostRaw], [DoPostMultipart], [DoGet]),
// the [HTTPStatusError] returned for non-2xx replies, [DoPostStream] with an
// [SSEScanner] for Server-Sent Events, and small value helpers.
package utils
