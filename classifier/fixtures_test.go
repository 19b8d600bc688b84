package classifier_test

const loginPage = `<!DOCTYPE html>
<html lang="pt-BR">
<head><title>EnergIA - Entrar</title></head>
<body>
  <h1>Entrar</h1>
  <form method="POST" action="/login">
    <input type="email" name="email" placeholder="seu@email.com" required>
    <input type="password" name="password" required>
    <button type="submit">Entrar</button>
  </form>
  <a href="/register">Cadastre-se</a>
</body>
</html>`

const loginPageWithError = `<html><body>
<div class="alert">Email ou senha inválidos</div>
<form action="/login" method="post">
  <label>Email <input name="email" type="text"></label>
  <label>Senha <input name="password" type="password"></label>
</form>
<p>Olá, faça login para continuar</p>
</body></html>`

const metadataDashboard = `<html><head><title>Dashboard</title></head><body>
<div id="user-metadata" style="display:none;" data-userid="64f1c2a9e" data-group="Volts"></div>
<nav><a href="/logout">Sair</a></nav>
<p>Olá,<br><h3> Maria Silva!</h3></p>
<p>maria@example.com</p>
</body></html>`

const metadataWithoutGreeting = `<html><body>
<div id="user-metadata" data-userid="u-123" data-group="watts"></div>
<main>Consumo do mês</main>
</body></html>`

const helloDashboard = `<html><body>
<header><a class="btn-logout" href="/logout">Logout</a></header>
<p>Hello, Jane Doe!</p>
</body></html>`

const helloNoMarkers = `<div>Hello, Jane Doe!</div>`

const headingDashboard = `<html><body class="dashboard">
<div class="greeting">Bem-vindo,
  <span class="muted"></span>
  <h2>  Carlos   Souza </h2>
</div>
<h4>Resumo</h4>
</body></html>`

const scriptDashboard = `<html><body id="dashboard">
<script>window.__USER__ = { name: 'Ana Lima', plan: 'free' };</script>
</body></html>`

const bareGreetingDashboard = `<html><body><div class="dashboard-container">Olá Pedro Alves</div></body></html>`

const genericDashboard = `<html><head><link rel="stylesheet" href="/css/dashboard_gen.css"></head>
<body><h1>Visualização Genérica</h1><p>Hello, Bruno!</p><a href="/logout">Sair</a></body></html>`

const logoutOnlyDashboard = `<html><body><nav><a href="/logout">Sair</a></nav><div>Seu consumo</div></body></html>`

const transitionalPage = `<html><body>
<form action="/login"><input type="email" name="email"><input type="password" name="password"></form>
<div id="user-metadata" data-userid="abc" data-group="Watts"></div>
</body></html>`

const loginFormWithLogoutOnly = `<html><body>
<a href="/logout">Sair</a>
<form action="/login"><input type="email" name="email"><input type="password" name="password"></form>
</body></html>`

const malformedHTML = `<html><body><div class="<<<"><input type=password <h3>Olá,<br><h3`
