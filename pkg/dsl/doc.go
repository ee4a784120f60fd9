/*
Package dsl provides a fluent Go builder for conversation graphs.

It is an alternative to YAML or JSON graph files, handy for tests and for
graphs generated at runtime.

Example usage:

	b := dsl.New()

	b.Add("start").
		Say("Olá! Como posso ajudar?").
		Go("Ver serviços", "services").
		Message("Falar connosco", "Olá, quero saber mais.")

	b.Add("services").
		Say("Temos soluções incríveis!").
		Link("Loja", "https://example.com/loja").
		Go("Voltar", "start")

	loader, err := b.Build()
	if err != nil {
		return err
	}
	engine, err := carpintaria.New(carpintaria.WithLoader(loader))
*/
package dsl
