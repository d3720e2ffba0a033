// Package config loads the projector configuration.
//
// Configuration is a single YAML file, ./projector.yaml by default. Every key
// is optional: LoadConfig starts from Default and overlays the file, so a
// missing file runs projector against local engines with a file store under
// ./data.
//
//	logging:
//	  level: info
//	  format: json
//	store:
//	  driver: file
//	  path: /var/lib/projector
//	  watch: true
//	search:
//	  url: https://search.internal:9200
//	  username: projector
//	  templatePrefix: projector.
//	dashboard:
//	  url: https://dashboard.internal:5601
//	  timeFields:
//	    ezpaarse: datetime
//	  descriptionTemplate: "{{ .space.name }} ({{ .institution.acronym }})"
//	reporting:
//	  enabled: true
//	  url: https://reporting.internal
//	sync:
//	  schedule: "0 */6 * * *"
//	  concurrency: 15
//	  onStartup: true
//
// Secrets can be kept out of the file with PROJECTOR_SEARCH_PASSWORD,
// PROJECTOR_DASHBOARD_PASSWORD and PROJECTOR_REPORTING_TOKEN.
//
// Unknown keys are rejected. Validation failures are reported together as a
// ConfigurationErrorCollection, one ConfigurationError per field.
package config
