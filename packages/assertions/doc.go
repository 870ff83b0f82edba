// Package assertions checks the last response of a session.
//
// Supported assertions:
//   - Status code checks (status == 201)
//   - Header validation (header Content-Type contains application/json)
//   - Body content checks (body contains "success")
//   - JSON path queries (body.data.id exists, items[0].name == "a")
//   - JSON Schema validation (body schema ./schema.json, or an inline schema object)
//   - Length and type checks (body.items length 10, body.items type array)
//
// Operators include ==, !=, >, >=, <, <=, contains, matches, exists, in and more.
package assertions
