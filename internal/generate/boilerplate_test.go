package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPom(t *testing.T) {
	pom := RenderPom("com.example.shop", "shop-api")

	assert.Contains(t, pom, "<groupId>com.example.shop</groupId>")
	assert.Contains(t, pom, "<artifactId>shop-api</artifactId>")
	assert.Contains(t, pom, "spring-boot-starter-parent")
	assert.Contains(t, pom, "<artifactId>h2</artifactId>")
	assert.Contains(t, pom, "spring-boot-maven-plugin")
}

func TestRenderStubByCategory(t *testing.T) {
	svc := RenderStub("com.shop.service", "CheckoutService.java", "service", "handles checkout")
	assert.Contains(t, svc, "package com.shop.service;")
	assert.Contains(t, svc, "import org.springframework.stereotype.Service;")
	assert.Contains(t, svc, "@Service")
	assert.Contains(t, svc, "// handles checkout")
	assert.Contains(t, svc, "public class CheckoutService {")

	ctrl := RenderStub("com.shop.controller", "OrdersController.java", "controller", "")
	assert.Contains(t, ctrl, "@RestController")
	assert.NotContains(t, ctrl, "// ")

	repo := RenderStub("com.shop.repository", "OrderRepository.java", "repository", "orders")
	assert.Contains(t, repo, "import org.springframework.data.jpa.repository.JpaRepository;")
	assert.Contains(t, repo, "public interface OrderRepository extends JpaRepository<Order, Long> {")

	model := RenderStub("com.shop.model", "Order.java", "model", "")
	assert.Contains(t, model, "public class Order {")
	assert.NotContains(t, model, "import")
	assert.NotContains(t, model, "@")
}

func TestRenderFailurePlaceholderCollapsesReason(t *testing.T) {
	got := RenderFailurePlaceholder("com.shop.model", "Product.java", "app/models/product.rb",
		"no fenced code block\nsecond line\twith   tabs")

	assert.Contains(t, got, "package com.shop.model;")
	assert.Contains(t, got, "Translation of app/models/product.rb failed: no fenced code block second line with tabs")
	assert.Contains(t, got, "public class Product {")
	assert.False(t, strings.Contains(got, "\t"))

	long := RenderFailurePlaceholder("com.shop", "A.java", "x.rb", strings.Repeat("x", 500))
	assert.Contains(t, long, "...")
}

func TestRenderView(t *testing.T) {
	withOrigin := RenderView("products.html", "app/views/products/index.html.erb")
	assert.Contains(t, withOrigin, "<title>products</title>")
	assert.Contains(t, withOrigin, "Converted from app/views/products/index.html.erb")

	bare := RenderView("about.html", "")
	assert.NotContains(t, bare, "Converted from")
}

func TestAppClassName(t *testing.T) {
	cases := map[string]string{
		"shop":        "ShopApplication",
		"shop-api":    "ShopApiApplication",
		"My Shop":     "MyShopApplication",
		"rails_app_2": "RailsApp2Application",
		"":            "GeneratedApplication",
		"---":         "GeneratedApplication",
	}
	for in, want := range cases {
		assert.Equal(t, want, AppClassName(in), in)
	}
}

func TestArtifactID(t *testing.T) {
	cases := map[string]string{
		"shop":      "shop",
		"My Shop!":  "my-shop",
		"Shop_API2": "shop-api2",
		"":          "transpiled-app",
	}
	for in, want := range cases {
		assert.Equal(t, want, ArtifactID(in), in)
	}
}

func TestPackageFor(t *testing.T) {
	cases := map[string]string{
		"src/main/java/com/shop/model": "com.shop.model",
		"src/main/java/com/shop":       "com.shop",
		"src/main/resources/templates": "",
		"app/models":                   "",
		"src/main/java/":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, PackageFor(in), in)
	}
}
