package sqlinline

const QInsertJob = `--sql 841e7056-b7d5-44d3-87b3-92b0034bf238
insert into jobs(
  id,
  project_id,
  provider_job_id,
  kind,
  status,
  input_refs,
  attempt,
  output_urls,
  error_message,
  created_at
)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text[], $7::int, $8::text[], $9::text, now());
`

const QUpdateJob = `--sql 4cbbfc1e-205c-408c-be51-49118ea7832b
update jobs
set provider_job_id = $2::text,
    status = $3::text,
    attempt = $4::int,
    output_urls = $5::text[],
    error_message = $6::text,
    completed_at = $7::timestamptz
where id = $1::uuid;
`

const QSelectJobByID = `--sql f9cf2f98-4701-40ea-868e-b3d869eff4ea
select id, project_id, provider_job_id, kind, status, input_refs, attempt, output_urls, error_message, created_at, completed_at
from jobs
where id = $1::uuid
limit 1;
`

const QClaimNextJob = `--sql 05842184-c985-4bf6-9858-5dcf246466eb
update jobs
set status = 'processing'
where id = (
  select id
  from jobs
  where status = 'starting'
  order by created_at
  for update skip locked
  limit 1
)
returning id, project_id, provider_job_id, kind, status, input_refs, attempt, output_urls, error_message, created_at, completed_at;
`
