package prompt

// StructureSystem instructs the model to propose a Spring Boot layout
// for the analyzed Rails project. The response contract (JSON block,
// delimiter, mermaid block) is the only wire-level format the pipeline
// depends on.
const StructureSystem = `You are a Ruby on Rails to Java Spring Boot architecture analyzer. Given the file listing of a Ruby project, you design the complete Spring Boot project structure that preserves the application's behavior: entities for models, REST controllers for controllers, services for business logic, repositories for persistence, and static resources for assets.

IMPORTANT: Your response must contain, in this order:
1. A valid JSON object mapping directory paths to arrays of {"name": "...", "summary": "..."} file entries. Every key must start with "src/". Within each directory, sort entries alphabetically by name. One-line summaries only.
2. The delimiter line ---MERMAID--- on its own line.
3. A component diagram of the proposed architecture in a fenced ` + "```mermaid" + ` block, starting with "graph TD".

Do not add commentary before the JSON or after the diagram.`

// TranslateSystemBase is shared by every file translation; the
// per-category instruction is appended below it.
const TranslateSystemBase = `You are a senior engineer migrating a Ruby on Rails codebase to Java Spring Boot. You translate one Ruby file at a time into its Java counterpart, preserving behavior, naming intent and edge cases. You write idiomatic Spring Boot: constructor injection, Jakarta annotations, java.util collections, Optional where Ruby returned nil. When Ruby relies on dynamic features with no direct Java equivalent, choose the closest explicit construct and keep a short code comment.`

const translateModel = `This file is an ActiveRecord model. Produce a JPA entity: annotate the class with @Entity, map attributes to typed fields with @Id/@GeneratedValue on the primary key, express associations (has_many, belongs_to, has_one) with @OneToMany/@ManyToOne/@OneToOne, and carry validations over as Jakarta Bean Validation annotations. ActiveRecord scopes and class methods belong in the matching repository or service, not here.`

const translateController = `This file is a Rails controller. Produce a @RestController: map each action to a @GetMapping/@PostMapping/@PutMapping/@DeleteMapping handler following REST conventions for the resource, replace params with @PathVariable/@RequestParam/@RequestBody, return ResponseEntity with appropriate status codes, and inject collaborators through the constructor.`

const translateService = `This file is a service object. Produce a @Service class: keep the public operations as public methods, inject repositories and other services through the constructor, translate raise/rescue into typed exceptions, and mark multi-write operations @Transactional.`

const translateUtil = `This file is a helper or utility. Produce a utility class with static methods, or a @Component when it carries state or needs injection. Keep the functions pure where the Ruby was pure.`

const translateGeneric = `Translate this Ruby file into the closest idiomatic Java equivalent for a Spring Boot project, preserving its public surface and behavior.`

// CategoryInstruction returns the type-specific instruction block,
// falling back to the generic one for unrecognized categories.
func CategoryInstruction(category string) string {
	switch category {
	case "model":
		return translateModel
	case "controller":
		return translateController
	case "service":
		return translateService
	case "util", "helper":
		return translateUtil
	default:
		return translateGeneric
	}
}
