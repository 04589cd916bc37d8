package generate

import (
	"bytes"
	"strings"
	"text/template"
	"unicode"
)

// Boilerplate files are rendered from static templates; nothing here
// touches the LLM. Paths and names follow Spring Boot conventions so
// the archive builds with a stock toolchain.

const pomXML = `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://maven.apache.org/POM/4.0.0 https://maven.apache.org/xsd/maven-4.0.0.xsd">
    <modelVersion>4.0.0</modelVersion>
    <parent>
        <groupId>org.springframework.boot</groupId>
        <artifactId>spring-boot-starter-parent</artifactId>
        <version>3.2.5</version>
        <relativePath/>
    </parent>
    <groupId>{{.GroupID}}</groupId>
    <artifactId>{{.ArtifactID}}</artifactId>
    <version>0.0.1-SNAPSHOT</version>
    <name>{{.ArtifactID}}</name>
    <description>Generated from a Ruby on Rails application</description>
    <properties>
        <java.version>17</java.version>
    </properties>
    <dependencies>
        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-web</artifactId>
        </dependency>
        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-data-jpa</artifactId>
        </dependency>
        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-validation</artifactId>
        </dependency>
        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-thymeleaf</artifactId>
        </dependency>
        <dependency>
            <groupId>com.h2database</groupId>
            <artifactId>h2</artifactId>
            <scope>runtime</scope>
        </dependency>
        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-test</artifactId>
            <scope>test</scope>
        </dependency>
    </dependencies>
    <build>
        <plugins>
            <plugin>
                <groupId>org.springframework.boot</groupId>
                <artifactId>spring-boot-maven-plugin</artifactId>
            </plugin>
        </plugins>
    </build>
</project>
`

const applicationJava = `package {{.Package}};

import org.springframework.boot.SpringApplication;
import org.springframework.boot.autoconfigure.SpringBootApplication;

@SpringBootApplication
public class {{.ClassName}} {

    public static void main(String[] args) {
        SpringApplication.run({{.ClassName}}.class, args);
    }
}
`

const applicationProperties = `spring.application.name={{.Name}}
server.port=8080

spring.datasource.url=jdbc:h2:mem:{{.DBName}};DB_CLOSE_DELAY=-1;DB_CLOSE_ON_EXIT=FALSE
spring.datasource.driver-class-name=org.h2.Driver
spring.datasource.username=sa
spring.datasource.password=

spring.jpa.hibernate.ddl-auto=update
spring.jpa.show-sql=false

spring.h2.console.enabled=true
spring.h2.console.path=/h2-console

spring.thymeleaf.cache=false
`

const stubClass = `package {{.Package}};
{{if .Import}}
import {{.Import}};
{{end}}{{if .Summary}}
// {{.Summary}}
{{end}}{{if .Annotation}}@{{.Annotation}}
{{end}}public class {{.ClassName}} {
}
`

const stubRepository = `package {{.Package}};

import org.springframework.data.jpa.repository.JpaRepository;
{{if .Summary}}
// {{.Summary}}
{{end}}public interface {{.ClassName}} extends JpaRepository<{{.Entity}}, Long> {
}
`

const failedClass = `package {{.Package}};

// Translation of {{.Origin}} failed: {{.Reason}}
// Re-run the conversion to regenerate this file.
public class {{.ClassName}} {
}
`

const placeholderView = `<!DOCTYPE html>
<html xmlns:th="http://www.thymeleaf.org">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
</head>
<body>
    <h1>{{.Title}}</h1>{{if .Origin}}
    <!-- Converted from {{.Origin}} -->{{end}}
</body>
</html>
`

var (
	pomTmpl      = template.Must(template.New("pom").Parse(pomXML))
	appTmpl      = template.Must(template.New("application").Parse(applicationJava))
	propsTmpl    = template.Must(template.New("properties").Parse(applicationProperties))
	stubTmpl     = template.Must(template.New("stub").Parse(stubClass))
	repoStubTmpl = template.Must(template.New("repoStub").Parse(stubRepository))
	failedTmpl   = template.Must(template.New("failed").Parse(failedClass))
	viewTmpl     = template.Must(template.New("view").Parse(placeholderView))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

// RenderPom produces the Maven build descriptor.
func RenderPom(basePackage, artifactID string) string {
	return render(pomTmpl, struct{ GroupID, ArtifactID string }{basePackage, artifactID})
}

// RenderApplication produces the Spring Boot entry point.
func RenderApplication(basePackage, className string) string {
	return render(appTmpl, struct{ Package, ClassName string }{basePackage, className})
}

// RenderProperties produces the H2-backed application.properties.
func RenderProperties(appName string) string {
	db := sanitizeIdent(appName)
	if db == "" {
		db = "appdb"
	}
	return render(propsTmpl, struct{ Name, DBName string }{appName, db})
}

// RenderStub produces an empty class for a proposed file with no Ruby
// source. Repositories become JpaRepository interfaces so entities
// proposed alongside them wire up without hand editing; controller,
// service and config stubs carry their stereotype annotation.
func RenderStub(pkg, fileName, category, summary string) string {
	className := JavaClassName(fileName)
	if category == "repository" {
		if entity := strings.TrimSuffix(className, "Repository"); entity != "" && entity != className {
			return render(repoStubTmpl, struct{ Package, ClassName, Entity, Summary string }{
				pkg, className, entity, summary,
			})
		}
	}
	var imp, ann string
	switch category {
	case "controller":
		imp, ann = "org.springframework.web.bind.annotation.RestController", "RestController"
	case "service":
		imp, ann = "org.springframework.stereotype.Service", "Service"
	case "config":
		imp, ann = "org.springframework.context.annotation.Configuration", "Configuration"
	}
	return render(stubTmpl, struct{ Package, ClassName, Summary, Import, Annotation string }{
		pkg, className, summary, imp, ann,
	})
}

// RenderFailurePlaceholder keeps the archive consistent with the
// proposal when one file's translation failed.
func RenderFailurePlaceholder(pkg, fileName, origin, reason string) string {
	reason = strings.Join(strings.Fields(reason), " ")
	if len(reason) > 200 {
		reason = reason[:200] + "..."
	}
	return render(failedTmpl, struct{ Package, ClassName, Origin, Reason string }{
		pkg, JavaClassName(fileName), origin, reason,
	})
}

// RenderView produces a placeholder Thymeleaf template for a proposed
// view. Rails view markup is not translated; the origin is noted so a
// human can port it.
func RenderView(fileName, origin string) string {
	title := strings.TrimSuffix(fileName, ".html")
	return render(viewTmpl, struct{ Title, Origin string }{title, origin})
}

// JavaClassName strips the .java extension.
func JavaClassName(fileName string) string {
	return strings.TrimSuffix(fileName, ".java")
}

// PackageFor converts a proposed Java source directory into its
// package name. Directories outside src/main/java have no package.
func PackageFor(dir string) string {
	rel, ok := strings.CutPrefix(strings.Trim(dir, "/"), "src/main/java/")
	if !ok || rel == "" {
		return ""
	}
	return strings.ReplaceAll(rel, "/", ".")
}

// AppClassName derives the Spring entry-point class from the project
// name: shop-api becomes ShopApiApplication.
func AppClassName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper {
				b.WriteRune(unicode.ToUpper(r))
				upper = false
			} else {
				b.WriteRune(r)
			}
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "GeneratedApplication"
	}
	return b.String() + "Application"
}

// ArtifactID derives a Maven artifact id from the project name.
func ArtifactID(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "transpiled-app"
	}
	return out
}

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
