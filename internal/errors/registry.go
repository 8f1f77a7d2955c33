package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
	Exit     int
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Lock Errors (E001-E009)
	// ============================================

	"E001": {
		Category: CategoryLock,
		Message:  "Timed out waiting for the registry lock",
		Detail:   "Another berth process is holding the registry lock. If that process is still running, wait for it to finish.",
		DocURL:   "https://berth.dev/docs/errors/E001",
		Exit:     9,
	},

	// ============================================
	// Registry Errors (E010-E019, E040-E049)
	// ============================================

	"E010": {
		Category: CategoryRegistry,
		Message:  "Registry file is corrupted",
		Detail:   "The registry contains a line that is neither a [section] header nor a key=value pair, or its records violate the uniqueness rules. berth refuses to operate on a registry it cannot fully account for.",
		DocURL:   "https://berth.dev/docs/errors/E010",
		Exit:     10,
	},
	"E011": {
		Category: CategoryRegistry,
		Message:  "Failed to write the registry",
		Detail:   "The registry could not be saved. The previous registry contents are untouched.",
		DocURL:   "https://berth.dev/docs/errors/E011",
		Exit:     11,
	},
	"E040": {
		Category: CategoryRegistry,
		Message:  "Project is already registered",
		Detail:   "A record for this project already exists in the registry.",
		DocURL:   "https://berth.dev/docs/errors/E040",
		Exit:     8,
	},
	"E041": {
		Category: CategoryRegistry,
		Message:  "Project is not registered",
		Detail:   "No registry record matches this project path.",
		DocURL:   "https://berth.dev/docs/errors/E041",
		Exit:     1,
	},

	// ============================================
	// Port Errors (E020-E029)
	// ============================================

	"E020": {
		Category: CategoryPorts,
		Message:  "No available ports in range",
		Detail:   "Every candidate port in the scan range is either registered to another project or in use on this machine.",
		DocURL:   "https://berth.dev/docs/errors/E020",
		Exit:     13,
	},

	// ============================================
	// Project Errors (E030-E039)
	// ============================================

	"E030": {
		Category: CategoryProject,
		Message:  "No compose file found",
		Detail:   "The project directory does not contain a docker-compose.yml (or compose.yml) file. berth provisions Laravel Sail projects, which ship one.",
		DocURL:   "https://berth.dev/docs/errors/E030",
		Exit:     5,
	},
	"E031": {
		Category: CategoryProject,
		Message:  "No .env file found",
		Detail:   "The project directory does not contain a .env file to write ports into.",
		DocURL:   "https://berth.dev/docs/errors/E031",
		Exit:     6,
	},
	"E032": {
		Category: CategoryProject,
		Message:  ".env already contains port assignments",
		Detail:   "The project's .env file already defines *_PORT variables, so it looks provisioned. Re-provisioning would clobber them.",
		DocURL:   "https://berth.dev/docs/errors/E032",
		Exit:     7,
	},
	"E033": {
		Category: CategoryProject,
		Message:  "Failed to write the .env file",
		Detail:   "Ports were allocated and registered, but the project's .env file could not be updated.",
		DocURL:   "https://berth.dev/docs/errors/E033",
		Exit:     12,
	},

	// ============================================
	// External Tool Errors (E050-E059)
	// ============================================

	"E050": {
		Category: CategoryExternal,
		Message:  "Docker is not installed",
		Detail:   "The docker CLI was not found on PATH. berth runs projects through Docker Compose.",
		DocURL:   "https://berth.dev/docs/errors/E050",
		Exit:     3,
	},
	"E051": {
		Category: CategoryExternal,
		Message:  "Docker is not running",
		Detail:   "The docker CLI is installed but the daemon did not respond.",
		DocURL:   "https://berth.dev/docs/errors/E051",
		Exit:     4,
	},
	"E052": {
		Category: CategoryExternal,
		Message:  "No proxy tool found",
		Detail:   "Neither valet nor herd was found on PATH. The project will be provisioned without a local domain.",
		DocURL:   "https://berth.dev/docs/errors/E052",
		Exit:     1,
	},

	// ============================================
	// CLI Errors (E060-E069)
	// ============================================

	"E060": {
		Category: CategoryCLI,
		Message:  "Cancelled",
		Detail:   "The operation was interrupted before it completed. Any registry lock held has been released.",
		DocURL:   "https://berth.dev/docs/errors/E060",
		Exit:     130,
	},

	// ============================================
	// Config Errors (E070-E079)
	// ============================================

	"E070": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The berth config file exists but could not be parsed as JSON.",
		DocURL:   "https://berth.dev/docs/errors/E070",
		Exit:     1,
	},
	"E071": {
		Category: CategoryConfig,
		Message:  "Failed to save configuration",
		Detail:   "The berth config file could not be written.",
		DocURL:   "https://berth.dev/docs/errors/E071",
		Exit:     1,
	},

	// ============================================
	// Update Errors (E080-E089)
	// ============================================

	"E080": {
		Category: CategoryExternal,
		Message:  "Update check failed",
		Detail:   "The release manifest could not be fetched or parsed.",
		DocURL:   "https://berth.dev/docs/errors/E080",
		Exit:     1,
	},
	"E081": {
		Category: CategoryExternal,
		Message:  "Update verification failed",
		Detail:   "The downloaded binary did not match the checksum published in the release manifest.",
		DocURL:   "https://berth.dev/docs/errors/E081",
		Exit:     1,
	},
	"E082": {
		Category: CategoryExternal,
		Message:  "Update install failed",
		Detail:   "The verified binary could not be moved into place. The current binary is untouched.",
		DocURL:   "https://berth.dev/docs/errors/E082",
		Exit:     1,
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for a code, if registered.
func GetTemplate(code string) (ErrorTemplate, bool) {
	template, ok := registry[code]
	return template, ok
}

// Register adds or replaces an error template at runtime.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
