// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

/*
Package clickup is the REST client for the ClickUp v2 API.

It is the TaskSource used by the webhook processor (single task re-fetch)
and the bulk importer (hierarchy walk and paginated task listing).

# Request Pipeline

Every request goes through the same steps:

  - wait on a token bucket limiter (golang.org/x/time/rate), sized from
    clickup.requests_per_minute
  - send with the API token in the Authorization header
  - on HTTP 429, honour Retry-After or back off exponentially and retry
  - on any other 4xx/5xx, decode ClickUp's {"err": "...", "ECODE": "..."}
    body into an *APIError

CircuitBreakerClient wraps a Client with sony/gobreaker so a failing
ClickUp does not stall every webhook for the full request timeout.

# Identifiers

ClickUp returns some ids and ordering fields as numbers in one endpoint and
strings in another. FlexString and FlexInt decode either form.
*/
package clickup
