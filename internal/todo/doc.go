// Package todo defines the task model and the persisted state document.
//
// The state document (tasks.json) is validated against a bundled JSON Schema
// before it is decoded:
//
//	{
//	  "schema_version": 1,
//	  "pending": [
//	    {
//	      "priority": 1,
//	      "due_date": "2025-01-01",
//	      "task": {
//	        "name": "write release notes",
//	        "priority": 1,
//	        "due_date": "2025-01-01",
//	        "dependencies": ["tag release"]
//	      }
//	    }
//	  ],
//	  "completed": ["tag release"]
//	}
//
// # Dates
//
// Due dates are calendar dates without a time or zone and are always written
// as YYYY-MM-DD, both in user input and in the state document.
//
// # Priority
//
// Lower values run first. Any integer is valid, including zero and negatives.
//
// # File Format
//
// When writing state documents, the package uses:
//   - 2-space indentation
//   - Trailing newline
//   - Pending entries in scheduling order, completed names sorted
package todo
