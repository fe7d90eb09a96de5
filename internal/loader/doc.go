// SPDX-License-Identifier: MPL-2.0

// Package loader fetches remote modules once per name and executes them.
//
// The package has two parts:
//
//   - TaskCache maps a module name to a Task, a shared future for the module's
//     source texts. The first Load for a name starts the fetch; every later Load
//     returns the same Task until RemoveTask or ClearTask evicts it. Failed
//     tasks stay cached until evicted.
//
//   - Loader executes a module's sources in order against a namespace (the
//     loader's shared global namespace, or an isolated one built by an active
//     Sandbox) and infers the module's export by diffing the namespace's own
//     property names before and after execution.
//
// Script failures are logged and stop the module's remaining scripts; they never
// fail Execute. Retrieval failures do.
package loader
